package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
)

const (
	collectionUsers       = "users"
	collectionRoles       = "roles"
	collectionPermissions = "permissions"
)

// UserRepository implements ports.UserRepository. Users reference roles by id
// and roles reference permissions by id; lookups resolve both levels.
type UserRepository struct {
	users       *mongo.Collection
	roles       *mongo.Collection
	permissions *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		users:       db.Collection(collectionUsers),
		roles:       db.Collection(collectionRoles),
		permissions: db.Collection(collectionPermissions),
	}
}

type mongoUser struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Username     string               `bson:"username"`
	NickName     string               `bson:"nick_name"`
	Email        string               `bson:"email"`
	Phone        string               `bson:"phone,omitempty"`
	Avatar       string               `bson:"avatar,omitempty"`
	PasswordHash string               `bson:"password_hash"`
	IsFrozen     bool                 `bson:"is_frozen"`
	IsAdmin      bool                 `bson:"is_admin"`
	RoleIDs      []primitive.ObjectID `bson:"role_ids"`
	CreatedAt    int64                `bson:"created_at"`
	UpdatedAt    int64                `bson:"updated_at"`
}

type mongoRole struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	Name          string               `bson:"name"`
	PermissionIDs []primitive.ObjectID `bson:"permission_ids"`
}

type mongoPermission struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Code        string             `bson:"code"`
	Description string             `bson:"description,omitempty"`
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string, adminOnly bool) (*domain.User, error) {
	return r.findOne(ctx, scopeFilter(bson.M{"username": username}, adminOnly))
}

func (r *UserRepository) FindByID(ctx context.Context, id string, adminOnly bool) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, scopeFilter(bson.M{"_id": oid}, adminOnly))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// Create inserts a user without roles. Duplicate username or email yields
// domain.ErrDuplicateUser.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoUser{
		Username:     user.Username,
		NickName:     user.NickName,
		Email:        user.Email,
		Phone:        user.Phone,
		Avatar:       user.Avatar,
		PasswordHash: user.PasswordHash,
		IsFrozen:     user.IsFrozen,
		IsAdmin:      user.IsAdmin,
		RoleIDs:      []primitive.ObjectID{},
		CreatedAt:    user.CreatedAt.Unix(),
		UpdatedAt:    user.UpdatedAt.Unix(),
	}

	res, err := r.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateUser
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	doc.ID, _ = res.InsertedID.(primitive.ObjectID)

	return toDomainUser(doc, nil), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateByID(ctx, id, bson.M{"password_hash": passwordHash})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update ports.ProfileUpdate) error {
	set := bson.M{}
	if update.NickName != nil {
		set["nick_name"] = *update.NickName
	}
	if update.Avatar != nil {
		set["avatar"] = *update.Avatar
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}
	return r.updateByID(ctx, id, set)
}

func (r *UserRepository) SetFrozen(ctx context.Context, id string, frozen bool) error {
	return r.updateByID(ctx, id, bson.M{"is_frozen": frozen})
}

// List returns a page of users matching the filter, ordered by creation.
func (r *UserRepository) List(ctx context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := userListFilter(f)
	total, err := r.users.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cur, err := r.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	var roleIDs []primitive.ObjectID
	for _, d := range docs {
		roleIDs = append(roleIDs, d.RoleIDs...)
	}
	roles, err := r.loadRoles(ctx, roleIDs)
	if err != nil {
		return nil, 0, err
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, toDomainUser(d, roles))
	}
	return users, total, nil
}

// EnsureIndexes creates the unique indexes the duplicate checks rely on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	if _, err := r.roles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("role indexes: %w", err)
	}
	if _, err := r.permissions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("permission indexes: %w", err)
	}
	return nil
}

// ── Seeding ──────────────────────────────────────────────────────────────────

// UpsertPermission inserts or updates a permission by code and returns its id.
func (r *UserRepository) UpsertPermission(ctx context.Context, p domain.Permission) (string, error) {
	return r.upsert(ctx, r.permissions, bson.M{"code": p.Code}, bson.M{"description": p.Description})
}

// UpsertRole inserts or updates a role by name and returns its id.
func (r *UserRepository) UpsertRole(ctx context.Context, name string, permissionIDs []string) (string, error) {
	oids, err := toObjectIDs(permissionIDs)
	if err != nil {
		return "", err
	}
	return r.upsert(ctx, r.roles, bson.M{"name": name}, bson.M{"permission_ids": oids})
}

// UpsertUser inserts or updates a user by username and returns its id.
// Existing accounts keep their password, profile fields and frozen flag; only
// email, admin flag and roles follow the fixture.
func (r *UserRepository) UpsertUser(ctx context.Context, u *domain.User, roleIDs []string) (string, error) {
	oids, err := toObjectIDs(roleIDs)
	if err != nil {
		return "", err
	}
	set, onInsert := userUpsertFields(u, oids, time.Now().UTC().Unix())
	return r.upsert(ctx, r.users, bson.M{"username": u.Username}, set, onInsert...)
}

func userUpsertFields(u *domain.User, roleIDs []primitive.ObjectID, now int64) (bson.M, []bson.E) {
	set := bson.M{
		"email":      u.Email,
		"is_admin":   u.IsAdmin,
		"role_ids":   roleIDs,
		"updated_at": now,
	}
	onInsert := []bson.E{
		{Key: "nick_name", Value: u.NickName},
		{Key: "phone", Value: u.Phone},
		{Key: "avatar", Value: u.Avatar},
		{Key: "password_hash", Value: u.PasswordHash},
		{Key: "is_frozen", Value: u.IsFrozen},
		{Key: "created_at", Value: now},
	}
	return set, onInsert
}

func (r *UserRepository) upsert(ctx context.Context, coll *mongo.Collection, key, set bson.M, onInsert ...bson.E) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": set}
	if len(onInsert) > 0 {
		update["$setOnInsert"] = bson.D(onInsert)
	}

	var doc struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err := coll.FindOneAndUpdate(ctx, key, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return "", fmt.Errorf("upsert %s: %w", coll.Name(), err)
	}
	return doc.ID.Hex(), nil
}

// ── Internals ────────────────────────────────────────────────────────────────

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoUser
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	roles, err := r.loadRoles(ctx, doc.RoleIDs)
	if err != nil {
		return nil, err
	}
	return toDomainUser(doc, roles), nil
}

func (r *UserRepository) updateByID(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC().Unix()
	res, err := r.users.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// loadRoles resolves role ids to roles with their permissions, keyed by role id.
func (r *UserRepository) loadRoles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Role, error) {
	out := make(map[primitive.ObjectID]domain.Role)
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := r.roles.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	var roles []mongoRole
	if err := cur.All(ctx, &roles); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}

	var permIDs []primitive.ObjectID
	for _, role := range roles {
		permIDs = append(permIDs, role.PermissionIDs...)
	}
	perms := make(map[primitive.ObjectID]domain.Permission)
	if len(permIDs) > 0 {
		cur, err := r.permissions.Find(ctx, bson.M{"_id": bson.M{"$in": permIDs}})
		if err != nil {
			return nil, fmt.Errorf("find permissions: %w", err)
		}
		var docs []mongoPermission
		if err := cur.All(ctx, &docs); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
		for _, p := range docs {
			perms[p.ID] = domain.Permission{ID: p.ID.Hex(), Code: p.Code, Description: p.Description}
		}
	}

	for _, role := range roles {
		out[role.ID] = toDomainRole(role, perms)
	}
	return out, nil
}

func toDomainRole(role mongoRole, perms map[primitive.ObjectID]domain.Permission) domain.Role {
	dr := domain.Role{ID: role.ID.Hex(), Name: role.Name}
	for _, pid := range role.PermissionIDs {
		if p, ok := perms[pid]; ok {
			dr.Permissions = append(dr.Permissions, p)
		}
	}
	return dr
}

func toDomainUser(doc mongoUser, roles map[primitive.ObjectID]domain.Role) *domain.User {
	u := &domain.User{
		ID:           doc.ID.Hex(),
		Username:     doc.Username,
		NickName:     doc.NickName,
		Email:        doc.Email,
		Phone:        doc.Phone,
		Avatar:       doc.Avatar,
		PasswordHash: doc.PasswordHash,
		IsFrozen:     doc.IsFrozen,
		IsAdmin:      doc.IsAdmin,
		CreatedAt:    unixToTime(doc.CreatedAt),
		UpdatedAt:    unixToTime(doc.UpdatedAt),
	}
	for _, id := range doc.RoleIDs {
		if role, ok := roles[id]; ok {
			u.Roles = append(u.Roles, role)
		}
	}
	return u
}

// scopeFilter restricts a lookup to administrators when adminOnly is set.
func scopeFilter(filter bson.M, adminOnly bool) bson.M {
	if adminOnly {
		filter["is_admin"] = true
	}
	return filter
}

func userListFilter(f ports.ListUsersFilter) bson.M {
	filter := bson.M{}
	if f.Username != "" {
		filter["username"] = containsRegex(f.Username)
	}
	if f.NickName != "" {
		filter["nick_name"] = containsRegex(f.NickName)
	}
	if f.Email != "" {
		filter["email"] = containsRegex(f.Email)
	}
	return filter
}

// containsRegex matches s literally anywhere in the field, ignoring case.
func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("invalid object id %q: %w", id, err)
		}
		out = append(out, oid)
	}
	return out, nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
