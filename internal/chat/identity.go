package chat

import (
	"fmt"
	"math"
	"strconv"

	"github.com/golang-jwt/jwt/v4"

	"shopchat/pkg/models"
)

// ResolveUserID extracts the numeric user id from a bearer token without
// verifying its signature. The server stays the authority on token validity;
// this only recovers the subject claim needed to address the chat channel.
//
// Errors: models.ErrMalformedCredential when the token is not a decodable
// three-segment JWT, models.ErrMissingIdentity when there is no sub claim,
// models.ErrInvalidIdentity when the sub claim is not a whole number.
func ResolveUserID(token string) (int64, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrMalformedCredential, err)
	}

	raw, ok := claims["sub"]
	if !ok || raw == nil {
		return 0, models.ErrMissingIdentity
	}

	switch sub := raw.(type) {
	case string:
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", models.ErrInvalidIdentity, sub)
		}
		return id, nil
	case float64:
		if math.IsNaN(sub) || math.IsInf(sub, 0) || sub != math.Trunc(sub) {
			return 0, fmt.Errorf("%w: %v", models.ErrInvalidIdentity, sub)
		}
		return int64(sub), nil
	default:
		return 0, fmt.Errorf("%w: unexpected sub claim type %T", models.ErrInvalidIdentity, raw)
	}
}
