package notify

// Kind 消息载荷类型
type Kind string

const (
	KindText     Kind = "text"
	KindLocation Kind = "location"
	KindFlex     Kind = "flex"
)

// Message 通知载荷（带标签的变体，按 Kind 取对应字段）
type Message struct {
	Kind     Kind
	Text     string
	Location *LocationPayload
	Flex     *FlexPayload
}

// LocationPayload 位置分享
type LocationPayload struct {
	Title     string
	Address   string
	Latitude  float64
	Longitude float64
}

// FlexPayload 卡片消息，Contents 为 LINE Flex JSON 结构
type FlexPayload struct {
	AltText  string
	Contents map[string]any
}

// Text 文本消息
func Text(text string) Message {
	return Message{Kind: KindText, Text: text}
}

// Location 位置分享消息
func Location(title, address string, lat, lon float64) Message {
	return Message{
		Kind: KindLocation,
		Location: &LocationPayload{
			Title:     title,
			Address:   address,
			Latitude:  lat,
			Longitude: lon,
		},
	}
}

// Flex 卡片消息
func Flex(altText string, contents map[string]any) Message {
	return Message{
		Kind: KindFlex,
		Flex: &FlexPayload{AltText: altText, Contents: contents},
	}
}
