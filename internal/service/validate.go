package service

import "math"

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validatePair(usersID, takecareID int64) error {
	if usersID <= 0 {
		return validationError("users_id must be positive")
	}
	if takecareID <= 0 {
		return validationError("takecare_id must be positive")
	}
	return nil
}

func validateCoordinates(lat, lon float64) error {
	if !isFinite(lat) || lat < -90 || lat > 90 {
		return validationError("latitude out of range: %v", lat)
	}
	if !isFinite(lon) || lon < -180 || lon > 180 {
		return validationError("longitude out of range: %v", lon)
	}
	return nil
}
