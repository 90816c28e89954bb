package tokens

import (
	"github.com/golang-jwt/jwt/v5"
)

func RefreshClaimsFromToken(TokenStr string, RefreshSecret []byte) (*RefreshClaims, error) {
	if TokenStr == "" || len(RefreshSecret) == 0 {
		return nil, ErrTokenInvalid
	}
	var claims RefreshClaims
	tkn, err := jwt.ParseWithClaims(TokenStr, &claims, hs256Key(RefreshSecret))
	if err != nil {
		return nil, classify(err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
