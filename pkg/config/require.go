package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost is the weakest password hashing the server will start with.
const MinBcryptCost = 10

// Validate reports the first configuration problem that would make the server unusable.
func (c Config) Validate() error {
	if len(c.JWTAccessSecret) == 0 {
		return fmt.Errorf("missing required env JWT_ACCESS_SECRET")
	}
	if len(c.JWTRefreshSecret) == 0 {
		return fmt.Errorf("missing required env JWT_REFRESH_SECRET")
	}
	if string(c.JWTAccessSecret) == string(c.JWTRefreshSecret) {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.BcryptCost < MinBcryptCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", MinBcryptCost, bcrypt.MaxCost, c.BcryptCost)
	}
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing required env DATABASE_URL")
		}
	case StoreMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("missing required env MONGO_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
