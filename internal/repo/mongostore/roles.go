package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/repo"
)

// RoleRepo implements repo.RoleStore. Roles embed a copy of their permissions.
type RoleRepo struct {
	s *Store
}

var _ repo.RoleStore = (*RoleRepo)(nil)

// permDoc carries the catalog position, which doubles as the permission id.
type permDoc struct {
	models.Permission `bson:",inline"`
	Seq               uint `bson:"seq"`
}

func (r *RoleRepo) findOne(ctx context.Context, filter bson.D) (*models.Role, error) {
	var role models.Role
	if err := r.s.roles.FindOne(ctx, filter).Decode(&role); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("mongo find role: %w", err)
	}
	return &role, nil
}

func (r *RoleRepo) FindByName(ctx context.Context, name string) (*models.Role, error) {
	return r.findOne(ctx, bson.D{{Key: "name", Value: name}})
}

func (r *RoleRepo) FindByID(ctx context.Context, id uint) (*models.Role, error) {
	return r.findOne(ctx, bson.D{{Key: "id", Value: id}})
}

func (r *RoleRepo) List(ctx context.Context) ([]models.Role, error) {
	cur, err := r.s.roles.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo list roles: %w", err)
	}
	defer cur.Close(ctx)

	var roles []models.Role
	if err := cur.All(ctx, &roles); err != nil {
		return nil, fmt.Errorf("mongo decode roles: %w", err)
	}
	return roles, nil
}

func (r *RoleRepo) permissions(ctx context.Context, filter bson.D) ([]models.Permission, error) {
	cur, err := r.s.perms.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo list permissions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []permDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode permissions: %w", err)
	}
	out := make([]models.Permission, len(docs))
	for i, d := range docs {
		out[i] = d.Permission
		out[i].ID = d.Seq
	}
	return out, nil
}

func (r *RoleRepo) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return r.permissions(ctx, bson.D{})
}

func (r *RoleRepo) UpsertPermission(ctx context.Context, p models.Permission) error {
	n, err := r.s.perms.CountDocuments(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("mongo count permissions: %w", err)
	}

	update := bson.M{
		"$set":         bson.M{"resource": p.Resource, "action": p.Action, "is_sensitive": p.IsSensitive},
		"$setOnInsert": bson.M{"seq": n + 1},
	}
	_, err = r.s.perms.UpdateOne(ctx, bson.D{{Key: "key", Value: p.Key}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert permission %s: %w", p.Key, err)
	}
	return nil
}

// roleID derives the numeric id from the role code ("R05" is 5).
func roleID(code string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(code, "R"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("role code %q: %w", code, err)
	}
	return uint(n), nil
}

func (r *RoleRepo) UpsertRole(ctx context.Context, seed models.RoleSeed) (*models.Role, error) {
	perms, err := r.permissions(ctx, bson.D{{Key: "key", Value: bson.M{"$in": seed.Permissions}}})
	if err != nil {
		return nil, err
	}
	if len(perms) != len(seed.Permissions) {
		return nil, fmt.Errorf("role %s: %d of %d permissions exist", seed.Code, len(perms), len(seed.Permissions))
	}
	id, err := roleID(seed.Code)
	if err != nil {
		return nil, err
	}

	now := toMS(time.Now())
	update := bson.M{
		"$set": bson.M{
			"id":          id,
			"name":        seed.Name,
			"permissions": perms,
			"is_system":   true,
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{"is_active": true, "created_at": now},
	}
	_, err = r.s.roles.UpdateOne(ctx, bson.D{{Key: "code", Value: seed.Code}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("mongo upsert role %s: %w", seed.Code, err)
	}
	return r.findOne(ctx, bson.D{{Key: "code", Value: seed.Code}})
}
