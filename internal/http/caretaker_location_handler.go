package httpapi

import (
	"net/http"

	"carezone/internal/service"

	"go.uber.org/zap"
)

// CaretakerLocationHandler 照护人位置 Handler
type CaretakerLocationHandler struct {
	caretakerService service.CaretakerLocationService
	logger           *zap.Logger
}

// NewCaretakerLocationHandler 创建 CaretakerLocationHandler
func NewCaretakerLocationHandler(caretakerService service.CaretakerLocationService, logger *zap.Logger) *CaretakerLocationHandler {
	return &CaretakerLocationHandler{
		caretakerService: caretakerService,
		logger:           logger,
	}
}

type caretakerLocationBody struct {
	UsersID    numeric `json:"users_id"`
	TakecareID numeric `json:"takecare_id"`
	Latitude   numeric `json:"latitude"`
	Longitude  numeric `json:"longitude"`
	Battery    numeric `json:"battery"`
	LocationID numeric `json:"location_id"`
}

// Record 记录照护人位置
func (h *CaretakerLocationHandler) Record(w http.ResponseWriter, r *http.Request) {
	var body caretakerLocationBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	var f fieldReader
	req := service.RecordCaretakerLocationRequest{
		UsersID:    f.integer("users_id", body.UsersID),
		TakecareID: f.integer("takecare_id", body.TakecareID),
		Latitude:   f.number("latitude", body.Latitude),
		Longitude:  f.number("longitude", body.Longitude),
		Battery:    int(f.optInteger("battery", body.Battery)),
		LocationID: f.optInteger("location_id", body.LocationID),
	}
	if f.err != nil {
		writeBadRequest(w, f.err.Error())
		return
	}

	loc, err := h.caretakerService.RecordCaretakerLocation(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "RecordCaretakerLocation", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(loc))
}

// GetLatest 查询最新照护人位置：?users_id=&takecare_id=
func (h *CaretakerLocationHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	usersID, err := queryInt64(r, "users_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	takecareID, err := queryInt64(r, "takecare_id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if usersID == nil || takecareID == nil {
		writeBadRequest(w, "users_id and takecare_id are required")
		return
	}

	loc, err := h.caretakerService.GetLatestCaretakerLocation(r.Context(), *usersID, *takecareID)
	if err != nil {
		writeServiceError(w, h.logger, "GetLatestCaretakerLocation", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(loc))
}
