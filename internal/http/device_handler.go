package httpapi

import (
	"net/http"

	"carezone/internal/service"

	"go.uber.org/zap"
)

// DeviceHandler 设备上报 Handler（位置 / 跌倒）
type DeviceHandler struct {
	locationService service.LocationService
	fallService     service.FallService
	logger          *zap.Logger
}

// NewDeviceHandler 创建 DeviceHandler
func NewDeviceHandler(locationService service.LocationService, fallService service.FallService, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		locationService: locationService,
		fallService:     fallService,
		logger:          logger,
	}
}

type sentLocationBody struct {
	UID        numeric `json:"uId"`
	TakecareID numeric `json:"takecare_id"`
	Distance   numeric `json:"distance"`
	Latitude   numeric `json:"latitude"`
	Longitude  numeric `json:"longitude"`
	Battery    numeric `json:"battery"`
}

func (b sentLocationBody) toRequest() (service.UpdateLocationRequest, error) {
	var f fieldReader
	req := service.UpdateLocationRequest{
		UsersID:    f.integer("uId", b.UID),
		TakecareID: f.integer("takecare_id", b.TakecareID),
		Distance:   f.number("distance", b.Distance),
		Latitude:   f.number("latitude", b.Latitude),
		Longitude:  f.number("longitude", b.Longitude),
		Battery:    int(f.integer("battery", b.Battery)),
	}
	return req, f.err
}

type sentFallBody struct {
	UsersID    numeric `json:"users_id"`
	TakecareID numeric `json:"takecare_id"`
	XAxis      numeric `json:"x_axis"`
	YAxis      numeric `json:"y_axis"`
	ZAxis      numeric `json:"z_axis"`
	FallStatus numeric `json:"fall_status"`
	Latitude   numeric `json:"latitude"`
	Longitude  numeric `json:"longitude"`
}

func (b sentFallBody) toRequest() (service.RecordFallRequest, error) {
	var f fieldReader
	req := service.RecordFallRequest{
		UsersID:    f.integer("users_id", b.UsersID),
		TakecareID: f.integer("takecare_id", b.TakecareID),
		XAxis:      f.number("x_axis", b.XAxis),
		YAxis:      f.number("y_axis", b.YAxis),
		ZAxis:      f.number("z_axis", b.ZAxis),
		FallStatus: int(f.integer("fall_status", b.FallStatus)),
		Latitude:   f.number("latitude", b.Latitude),
		Longitude:  f.number("longitude", b.Longitude),
	}
	return req, f.err
}

// SentLocation 位置上报
func (h *DeviceHandler) SentLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. 参数解析
	var body sentLocationBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	// 2. 调用 Service
	resp, err := h.locationService.UpdateLocation(ctx, req)
	if err != nil {
		writeServiceError(w, h.logger, "UpdateLocation", err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// SentFall 跌倒上报
func (h *DeviceHandler) SentFall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. 参数解析
	var body sentFallBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	// 2. 调用 Service
	resp, err := h.fallService.RecordFall(ctx, req)
	if err != nil {
		writeServiceError(w, h.logger, "RecordFall", err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}
