package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/repo"
)

// UserRepo implements repo.UserStore on the users collection.
type UserRepo struct {
	s *Store
}

var _ repo.UserStore = (*UserRepo)(nil)

// MongoDB DateTime keeps milliseconds.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

func (r *UserRepo) findOne(ctx context.Context, filter bson.D) (*models.User, error) {
	var u models.User
	if err := r.s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: repo.NormalizeEmail(email)}})
}

// FindByID loads the user and resolves its role document, permissions included.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, err := r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, err
	}
	if u.RoleCode != nil {
		role, err := r.s.Roles().findOne(ctx, bson.D{{Key: "code", Value: *u.RoleCode}})
		switch {
		case err == nil:
			u.RoleData = role
		case !errors.Is(err, repo.ErrNotFound):
			return nil, err
		}
	}
	return u, nil
}

func (r *UserRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return r.FindByEmail(ctx, identifier)
	}
	return r.FindByID(ctx, identifier)
}

func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	total, err := r.s.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("mongo count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.s.users.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo list users: %w", err)
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("mongo decode users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	now := toMS(time.Now())
	u.Email = repo.NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now

	if _, err := r.s.users.InsertOne(ctx, u); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return repo.ErrConflict
		}
		return fmt.Errorf("mongo insert user: %w", err)
	}
	return nil
}

// update applies set to one user; every call is a single document write.
func (r *UserRepo) update(ctx context.Context, filter bson.D, set bson.M, notMatched error) error {
	set["updated_at"] = toMS(time.Now())
	res, err := r.s.users.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return notMatched
	}
	return nil
}

func (r *UserRepo) byID(ctx context.Context, id string, set bson.M) error {
	return r.update(ctx, bson.D{{Key: "_id", Value: id}}, set, repo.ErrNotFound)
}

func (r *UserRepo) CompleteLogin(ctx context.Context, id, activeRole string, roles []string, roleCode *string, refreshHash string, at time.Time) error {
	return r.byID(ctx, id, bson.M{
		"active_role":   activeRole,
		"roles":         roles,
		"role_code":     roleCode,
		"refresh_token": refreshHash,
		"last_login_at": toMS(at),
	})
}

func (r *UserRepo) SaveOTP(ctx context.Context, id, otpHash string, expires time.Time) error {
	return r.byID(ctx, id, bson.M{
		"password_reset_otp":          otpHash,
		"password_reset_otp_expire":   toMS(expires),
		"password_reset_otp_verified": false,
	})
}

func (r *UserRepo) ClearOTP(ctx context.Context, id string) error {
	return r.byID(ctx, id, bson.M{
		"password_reset_otp":          "",
		"password_reset_otp_expire":   nil,
		"password_reset_otp_verified": false,
	})
}

func (r *UserRepo) MarkOTPVerified(ctx context.Context, id string) error {
	return r.byID(ctx, id, bson.M{"password_reset_otp_verified": true})
}

func (r *UserRepo) ResetPassword(ctx context.Context, id, passwordHash, refreshHash string) error {
	return r.byID(ctx, id, bson.M{
		"password_hash":               passwordHash,
		"password_reset_otp":          "",
		"password_reset_otp_expire":   nil,
		"password_reset_otp_verified": false,
		"refresh_token":               refreshHash,
	})
}

func (r *UserRepo) SwitchRole(ctx context.Context, id, role string, roleCode *string, refreshHash string) error {
	return r.byID(ctx, id, bson.M{
		"active_role":   role,
		"role_code":     roleCode,
		"refresh_token": refreshHash,
	})
}

// RotateRefreshToken matches on the old fingerprint so that only one concurrent rotation wins.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) error {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "refresh_token", Value: oldHash}}
	return r.update(ctx, filter, bson.M{"refresh_token": newHash}, repo.ErrStaleRefreshToken)
}

func (r *UserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.byID(ctx, id, bson.M{"refresh_token": ""})
}

func (r *UserRepo) UpdateStatus(ctx context.Context, id string, status models.Status, by string) error {
	set := bson.M{"status": status, "updated_by": by}
	if status != models.StatusActive {
		set["refresh_token"] = ""
	}
	return r.byID(ctx, id, set)
}

func (r *UserRepo) SetRoles(ctx context.Context, id string, roles []string, by string) error {
	return r.byID(ctx, id, bson.M{"roles": roles, "updated_by": by})
}
