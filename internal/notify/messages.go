package notify

import (
	"fmt"

	"carezone/internal/models"
)

// 文案
const (
	TextNearLevel2      = "%s is approaching the outer safe zone boundary (level 2)."
	TextBreachLevel1    = "%s has left the inner safe zone (level 1)."
	TextFallNotOK       = "%s pressed \"not OK\" and is asking for help."
	TextFallNoResponse  = "%s has not responded within 30 seconds."
	TextUnknownAccept   = "Cannot identify you, cannot accept this case."
	TextUnknownClose    = "Cannot identify you, cannot close this case."
	TextAlreadyAccepted = "This case was already accepted by someone else."
	TextAlreadyClosed   = "This case was already closed by someone else."
	TextAccepted        = "You accepted this case. Please head to the subject's location."
	TextClosed          = "You closed this case. Thank you for helping."
	TextHelpRequested   = "Your help request was sent to the responder group."
	TextHelpUnavailable = "No responder group is available right now. Please call for help directly."
	TextHelpFailed      = "Your help request could not be sent. Please call for help directly."
	TextCaseNotFound    = "This case could not be found."
	TextCaseMismatch    = "This case does not belong to the person on this card."
	TextActionFailed    = "Your action could not be processed. Please try again."
	unknownDisplayName  = "Unknown"
	googleMapsSearchURL = "https://www.google.com/maps/search/?api=1&query=%f,%f"
)

// NearLevel2Message 接近外圈提醒
func NearLevel2Message(tp *models.Takecareperson) Message {
	return Text(fmt.Sprintf(TextNearLevel2, tp.FullName()))
}

// BreachLevel1Message 离开内圈提醒
func BreachLevel1Message(tp *models.Takecareperson) Message {
	return Text(fmt.Sprintf(TextBreachLevel1, tp.FullName()))
}

// GoogleMapsURL 地图搜索链接
func GoogleMapsURL(lat, lon float64) string {
	return fmt.Sprintf(googleMapsSearchURL, lat, lon)
}

func infoRow(label, text string) map[string]any {
	if text == "" {
		text = "-"
	}
	return map[string]any{
		"type":   "box",
		"layout": "baseline",
		"contents": []any{
			map[string]any{"type": "text", "text": label, "flex": 2, "size": "sm", "color": "#AAAAAA"},
			map[string]any{"type": "text", "text": text, "flex": 5, "size": "sm", "color": "#666666", "wrap": true},
		},
	}
}

func postbackButton(style, color, label string, p Postback) map[string]any {
	return map[string]any{
		"type":  "button",
		"style": style,
		"color": color,
		"action": map[string]any{
			"type":  "postback",
			"label": label,
			"data":  p.Encode(),
		},
	}
}

// EscalationCase 群组求助卡片所需数据
type EscalationCase struct {
	CaseID      int64
	ResendCount int
	Reason      string
	User        *models.User
	Takecare    *models.Takecareperson
	Latitude    float64
	Longitude   float64
}

// EscalationMessages 群组求助消息：位置分享 + 带 Accept/Close 按钮的卡片
func EscalationMessages(c EscalationCase) []Message {
	title := "Emergency help request"
	if c.ResendCount > 0 {
		title = fmt.Sprintf("Emergency help request (attempt %d)", c.ResendCount+1)
	}

	card := map[string]any{
		"type": "bubble",
		"header": map[string]any{
			"type":   "box",
			"layout": "vertical",
			"contents": []any{
				map[string]any{"type": "text", "text": title, "weight": "bold", "size": "xl", "color": "#FC0303"},
			},
		},
		"body": map[string]any{
			"type":    "box",
			"layout":  "vertical",
			"spacing": "md",
			"contents": []any{
				map[string]any{"type": "text", "text": "Subject", "weight": "bold", "size": "md"},
				infoRow("Name", c.Takecare.FullName()),
				infoRow("Tel", c.Takecare.Tel),
				infoRow("Reason", c.Reason),
				map[string]any{"type": "separator", "margin": "md"},
				map[string]any{"type": "text", "text": "Primary caregiver", "weight": "bold", "size": "md"},
				infoRow("Name", c.User.FullName()),
				infoRow("Tel", c.User.Tel),
			},
		},
		"footer": map[string]any{
			"type":    "box",
			"layout":  "vertical",
			"spacing": "sm",
			"contents": []any{
				map[string]any{
					"type":  "button",
					"style": "secondary",
					"color": "#E5E5E5",
					"action": map[string]any{
						"type":  "uri",
						"label": "Open Google Maps",
						"uri":   GoogleMapsURL(c.Latitude, c.Longitude),
					},
				},
				postbackButton("primary", "#00B900", "Accept this case", Postback{
					Type:       PostbackAccept,
					TakecareID: c.Takecare.TakecareID,
					ExtenID:    c.CaseID,
					UserLineID: c.User.LineID,
				}),
				postbackButton("link", "#FF4B4B", "Close case (help completed)", Postback{
					Type:       PostbackClose,
					TakecareID: c.Takecare.TakecareID,
					ExtenID:    c.CaseID,
				}),
			},
		},
	}

	return []Message{
		Location("Location: "+c.Takecare.FullName(), "Last known position", c.Latitude, c.Longitude),
		Flex("Emergency help request", card),
	}
}

// FallAlertText 按 fall_status 区分文案
func FallAlertText(tp *models.Takecareperson, fallStatus int) string {
	if fallStatus == models.FallStatusPressedNotOK {
		return fmt.Sprintf(TextFallNotOK, tp.FullName())
	}
	return fmt.Sprintf(TextFallNoResponse, tp.FullName())
}

// FallAlertMessages 跌倒提醒：卡片（带"请求协助"按钮） + 位置分享，发给照护人
func FallAlertMessages(user *models.User, tp *models.Takecareperson, fallStatus int, lat, lon float64) []Message {
	card := map[string]any{
		"type": "bubble",
		"body": map[string]any{
			"type":    "box",
			"layout":  "vertical",
			"spacing": "md",
			"contents": []any{
				map[string]any{"type": "text", "text": "Possible fall detected", "weight": "bold", "size": "lg", "color": "#FC0303"},
				map[string]any{"type": "text", "text": FallAlertText(tp, fallStatus), "wrap": true},
				infoRow("Tel", tp.Tel),
			},
		},
		"footer": map[string]any{
			"type":   "box",
			"layout": "vertical",
			"contents": []any{
				postbackButton("primary", "#FC0303", "Request help", Postback{
					Type:       PostbackAlert,
					TakecareID: tp.TakecareID,
					UsersID:    user.UsersID,
					UserLineID: user.LineID,
				}),
			},
		},
	}

	return []Message{
		Flex("Possible fall detected", card),
		Location("Location: "+tp.FullName(), "Fall location", lat, lon),
	}
}

// ConfirmationMessage 响应者操作回执卡片
func ConfirmationMessage(title, displayName, text string) Message {
	if displayName == "" {
		displayName = unknownDisplayName
	}
	card := map[string]any{
		"type": "bubble",
		"body": map[string]any{
			"type":   "box",
			"layout": "vertical",
			"contents": []any{
				map[string]any{"type": "text", "text": title, "weight": "bold", "size": "lg", "color": "#00B900"},
				map[string]any{"type": "text", "text": displayName, "margin": "md"},
				map[string]any{"type": "text", "text": text, "wrap": true, "color": "#666666", "size": "sm"},
			},
		},
	}
	return Flex(title, card)
}
