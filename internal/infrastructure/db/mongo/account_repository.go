package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

const accountsCollection = "users"

// AccountRepository implements ports.AccountRepository using MongoDB.
// Username and email are stored normalized and guarded by unique indexes.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(accountsCollection)}
}

type mongoAccount struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	Role         string             `bson:"role"`
	FirstName    string             `bson:"firstName"`
	LastName     string             `bson:"lastName"`
	PhoneNumber  string             `bson:"phoneNumber,omitempty"`
	IsActive     bool               `bson:"isActive"`
	LastLogin    *time.Time         `bson:"lastLogin,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func fromAccount(a *domain.Account) mongoAccount {
	return mongoAccount{
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Role:         string(a.Role),
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		PhoneNumber:  a.PhoneNumber,
		IsActive:     a.IsActive,
		LastLogin:    a.LastLogin,
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}
}

func (m mongoAccount) toDomain() *domain.Account {
	a := &domain.Account{
		ID:           m.ID.Hex(),
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PhoneNumber:  m.PhoneNumber,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.LastLogin != nil {
		t := m.LastLogin.UTC()
		a.LastLogin = &t
	}
	return a
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := fromAccount(a)
	doc.ID = primitive.NewObjectID()
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAccountExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByIdentity(ctx context.Context, identifier string) (*domain.Account, error) {
	key := domain.NormalizeIdentity(identifier)
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": key},
		bson.M{"username": key},
	}})
}

func (r *AccountRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// Each value is checked against both fields: login resolves one
	// identifier through either of them.
	ids := bson.A{domain.NormalizeIdentity(username), domain.NormalizeIdentity(email)}
	n, err := r.col.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"username": bson.M{"$in": ids}},
		bson.M{"email": bson.M{"$in": ids}},
	}}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return n > 0, nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Account, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if u.FirstName != nil {
		set["firstName"] = *u.FirstName
	}
	if u.LastName != nil {
		set["lastName"] = *u.LastName
	}
	if u.PhoneNumber != nil {
		set["phoneNumber"] = *u.PhoneNumber
	}
	return r.updateOne(ctx, id, bson.M{"$set": set})
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"password":  passwordHash,
		"updatedAt": time.Now().UTC(),
	}})
	return err
}

func (r *AccountRepository) SetActive(ctx context.Context, id string, active bool) (*domain.Account, error) {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"isActive":  active,
		"updatedAt": time.Now().UTC(),
	}})
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.updateOne(ctx, id, bson.M{"$set": bson.M{"lastLogin": at.UTC()}})
	return err
}

func (r *AccountRepository) List(ctx context.Context, f ports.ListAccountsFilter) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = string(f.Role)
	}
	if f.Active != nil {
		filter["isActive"] = *f.Active
	}

	opts := options.Find().SetSort(bson.D{{Key: "lastName", Value: 1}, {Key: "firstName", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoAccount
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}

	out := make([]*domain.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// EnsureIndexes creates the unique identity indexes and the role index used
// by List.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "isActive", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAccount
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

// updateOne applies update to the account with id and returns the stored
// result after the update.
func (r *AccountRepository) updateOne(ctx context.Context, id string, update bson.M) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAccount
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return doc.toDomain(), nil
}
