package v1

import (
	"math"
	"net/http"
	"strconv"

	"github.com/reddishJade/sports-exem/internal/domain"
)

// Headers set by the authentication layer in front of this service.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	HeaderHeightCm = "X-User-Height-Cm"
	HeaderWeightKg = "X-User-Weight-Kg"
)

// UserFromRequest reads the caller identity from the authentication headers.
// It returns false when no user id is present.
func UserFromRequest(r *http.Request) (domain.UserContext, bool) {
	return userFrom(func(header, _ string) string {
		return r.Header.Get(header)
	})
}

// UserFromHandshake is UserFromRequest for websocket upgrades. Browsers
// cannot set headers on a handshake, so the query parameters user_id,
// user_role, height_cm and weight_kg are accepted when a header is absent.
func UserFromHandshake(r *http.Request) (domain.UserContext, bool) {
	query := r.URL.Query()
	return userFrom(func(header, param string) string {
		if v := r.Header.Get(header); v != "" {
			return v
		}
		return query.Get(param)
	})
}

func userFrom(get func(header, param string) string) (domain.UserContext, bool) {
	user := domain.UserContext{
		UserID:   get(HeaderUserID, "user_id"),
		UserType: domain.ParseUserType(get(HeaderUserRole, "user_role")),
		HeightCm: parsePositive(get(HeaderHeightCm, "height_cm")),
		WeightKg: parsePositive(get(HeaderWeightKg, "weight_kg")),
	}
	return user, user.UserID != ""
}

// parsePositive returns a finite positive number, or 0.
func parsePositive(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return v
}
