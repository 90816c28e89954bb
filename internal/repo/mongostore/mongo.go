// Package mongostore keeps the credential store in MongoDB: users, roles with
// their embedded permissions, and the permission catalog.
package mongostore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection       = "users"
	rolesCollection       = "roles"
	permissionsCollection = "permissions"
	defaultDBName         = "school_auth"
)

type Store struct {
	client *mongodriver.Client
	db     *mongodriver.Database

	users *mongodriver.Collection
	roles *mongodriver.Collection
	perms *mongodriver.Collection
}

// New connects, pings and ensures the unique indexes the store relies on.
func New(ctx context.Context, uri string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := newStore(cli, cli.Database(databaseFromURI(uri)))
	if err := s.ensureIndexes(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

func newStore(cli *mongodriver.Client, db *mongodriver.Database) *Store {
	return &Store{
		client: cli,
		db:     db,
		users:  db.Collection(usersCollection),
		roles:  db.Collection(rolesCollection),
		perms:  db.Collection(permissionsCollection),
	}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }
func (s *Store) Roles() *RoleRepo { return &RoleRepo{s: s} }

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := func(name string, keys ...string) mongodriver.IndexModel {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return mongodriver.IndexModel{Keys: d, Options: options.Index().SetName(name).SetUnique(true)}
	}

	if _, err := s.users.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		unique("email_unique", "email"),
		{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("created_desc")},
	}); err != nil {
		return fmt.Errorf("mongo ensure user indexes: %w", err)
	}
	if _, err := s.roles.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		unique("code_unique", "code"),
		unique("name_unique", "name"),
	}); err != nil {
		return fmt.Errorf("mongo ensure role indexes: %w", err)
	}
	if _, err := s.perms.Indexes().CreateOne(ctx, unique("key_unique", "key")); err != nil {
		return fmt.Errorf("mongo ensure permission indexes: %w", err)
	}
	return nil
}

// databaseFromURI takes the database name from the URI path, falling back to the default.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}
