package tokens

import (
	"github.com/golang-jwt/jwt/v5"
)

func AccessClaimsFromToken(TokenStr string, AccessSecret []byte) (*AccessClaims, error) {
	if TokenStr == "" || len(AccessSecret) == 0 {
		return nil, ErrTokenInvalid
	}
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(TokenStr, &claims, hs256Key(AccessSecret))
	if err != nil {
		return nil, classify(err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
