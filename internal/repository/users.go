package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/reshmacrochets/backend/internal/domain"
)

// credentialFields are excluded from reads unless the caller explicitly asks
// for them (login, change-password).
var credentialFields = bson.D{
	{Key: "password", Value: 0},
	{Key: "resetPasswordToken", Value: 0},
	{Key: "resetPasswordExpire", Value: 0},
	{Key: "emailVerificationToken", Value: 0},
	{Key: "emailVerificationExpire", Value: 0},
}

// UserRepository persists account documents in the users collection.
type UserRepository struct {
	col *mongo.Collection
}

// NewUserRepository returns a UserRepository over db.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

// Create inserts a new user. A duplicate email maps to
// domain.ErrDuplicateEmail via the unique index.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail looks a user up by normalized email. withCredentials includes
// the password hash and token fields.
func (r *UserRepository) FindByEmail(ctx context.Context, email string, withCredentials bool) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)}, withCredentials)
}

// FindByID looks a user up by id.
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID, withCredentials bool) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, withCredentials)
}

// FindByResetTokenHash returns the user holding the given reset token hash
// with an unexpired window, per the one-time secret contract.
func (r *UserRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	filter := bson.M{
		"resetPasswordToken":  hash,
		"resetPasswordExpire": bson.M{"$gt": now},
	}
	return r.findOne(ctx, filter, true)
}

// FindByVerificationTokenHash is the email-verification analogue of
// FindByResetTokenHash.
func (r *UserRepository) FindByVerificationTokenHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	filter := bson.M{
		"emailVerificationToken":  hash,
		"emailVerificationExpire": bson.M{"$gt": now},
	}
	return r.findOne(ctx, filter, true)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, withCredentials bool) (*domain.User, error) {
	opts := options.FindOne()
	if !withCredentials {
		opts.SetProjection(credentialFields)
	}

	var user domain.User
	err := r.col.FindOne(ctx, filter, opts).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// UpdatePassword stores a new password hash and the password-change
// timestamp, clearing any outstanding reset token in the same write.
func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"password":          hash,
			"passwordChangedAt": changedAt,
			"updatedAt":         time.Now(),
		},
		"$unset": bson.M{
			"resetPasswordToken":  "",
			"resetPasswordExpire": "",
		},
	}
	return r.updateByID(ctx, id, update)
}

// SetResetToken stores a hashed reset secret and its expiry.
func (r *UserRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"resetPasswordToken":  hash,
			"resetPasswordExpire": expire,
		},
	})
}

// ClearResetToken rolls the stored reset secret back, e.g. after a failed
// email send.
func (r *UserRepository) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$unset": bson.M{
			"resetPasswordToken":  "",
			"resetPasswordExpire": "",
		},
	})
}

// SetVerificationToken stores a hashed email-verification secret and expiry.
func (r *UserRepository) SetVerificationToken(ctx context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"emailVerificationToken":  hash,
			"emailVerificationExpire": expire,
		},
	})
}

// MarkVerified flips the verification flag and consumes the token fields.
func (r *UserRepository) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"isVerified": true, "updatedAt": time.Now()},
		"$unset": bson.M{
			"emailVerificationToken":  "",
			"emailVerificationExpire": "",
		},
	})
}

// StampLastLogin records a successful login time.
func (r *UserRepository) StampLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"lastLogin": at}})
}

// ProfileUpdate carries the optional profile fields a user may change about
// themselves. Nil pointers are left untouched.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	DateOfBirth *time.Time
	Gender      *string
}

// UpdateProfile applies the non-nil fields and returns the updated document.
func (r *UserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*domain.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.FirstName != nil {
		set["firstName"] = *upd.FirstName
	}
	if upd.LastName != nil {
		set["lastName"] = *upd.LastName
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.DateOfBirth != nil {
		set["dateOfBirth"] = *upd.DateOfBirth
	}
	if upd.Gender != nil {
		set["gender"] = *upd.Gender
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(credentialFields)

	var user domain.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &user, nil
}

// SaveAddresses replaces the embedded address list. The caller maintains the
// single-default invariant before writing.
func (r *UserRepository) SaveAddresses(ctx context.Context, id primitive.ObjectID, addresses []domain.Address) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"addresses": addresses, "updatedAt": time.Now()},
	})
}

// AddToWishlist adds a product reference with set semantics.
func (r *UserRepository) AddToWishlist(ctx context.Context, id, productID primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{"$addToSet": bson.M{"wishlist": productID}})
}

// RemoveFromWishlist removes a product reference.
func (r *UserRepository) RemoveFromWishlist(ctx context.Context, id, productID primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{"$pull": bson.M{"wishlist": productID}})
}

// ListFilter narrows and paginates the admin user listing.
type ListFilter struct {
	Role     string
	IsActive *bool
	Search   string
	Page     int
	Limit    int
}

// List returns a page of users (credentials excluded) plus the total count
// for the filter, newest first.
func (r *UserRepository) List(ctx context.Context, f ListFilter) ([]domain.User, int64, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.IsActive != nil {
		filter["isActive"] = *f.IsActive
	}
	if f.Search != "" {
		rx := primitive.Regex{Pattern: f.Search, Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"firstName": rx},
			bson.M{"lastName": rx},
			bson.M{"email": rx},
		}
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetProjection(credentialFields).
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var users []domain.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

// AdminUpdate is the admin-editable subset of a user document. The password
// is deliberately not updatable through this path.
type AdminUpdate struct {
	FirstName  *string
	LastName   *string
	Phone      *string
	Role       *domain.Role
	IsVerified *bool
	IsActive   *bool
}

// UpdateAdmin applies an admin edit and returns the updated document.
func (r *UserRepository) UpdateAdmin(ctx context.Context, id primitive.ObjectID, upd AdminUpdate) (*domain.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.FirstName != nil {
		set["firstName"] = *upd.FirstName
	}
	if upd.LastName != nil {
		set["lastName"] = *upd.LastName
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Role != nil {
		set["role"] = *upd.Role
	}
	if upd.IsVerified != nil {
		set["isVerified"] = *upd.IsVerified
	}
	if upd.IsActive != nil {
		set["isActive"] = *upd.IsActive
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(credentialFields)

	var user domain.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("admin update user: %w", err)
	}
	return &user, nil
}

// Deactivate soft-deletes an account that owns orders.
func (r *UserRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"isActive": false, "updatedAt": time.Now()},
	})
}

// Delete removes the account document.
func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MonthCount is one bucket of the user growth series.
type MonthCount struct {
	Year  int `bson:"year" json:"year"`
	Month int `bson:"month" json:"month"`
	Count int `bson:"count" json:"count"`
}

// DashboardStats aggregates the admin dashboard numbers in a single call.
func (r *UserRepository) DashboardStats(ctx context.Context, now time.Time) (total, active, newThisMonth int64, byRole map[string]int, growth []MonthCount, err error) {
	total, err = r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("count users: %w", err)
	}
	active, err = r.col.CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("count active users: %w", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	newThisMonth, err = r.col.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": monthStart}})
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("count new users: %w", err)
	}

	roleCur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$role", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("aggregate roles: %w", err)
	}
	defer roleCur.Close(ctx)

	byRole = map[string]int{}
	for roleCur.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := roleCur.Decode(&row); err != nil {
			return 0, 0, 0, nil, nil, fmt.Errorf("decode role row: %w", err)
		}
		byRole[row.ID] = row.Count
	}

	growthCur, err := r.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$createdAt"},
				"month": bson.M{"$month": "$createdAt"},
			},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}}}},
		{{Key: "$limit", Value: 12}},
	})
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("aggregate growth: %w", err)
	}
	defer growthCur.Close(ctx)

	for growthCur.Next(ctx) {
		var row struct {
			ID struct {
				Year  int `bson:"year"`
				Month int `bson:"month"`
			} `bson:"_id"`
			Count int `bson:"count"`
		}
		if err := growthCur.Decode(&row); err != nil {
			return 0, 0, 0, nil, nil, fmt.Errorf("decode growth row: %w", err)
		}
		growth = append(growth, MonthCount{Year: row.ID.Year, Month: row.ID.Month, Count: row.Count})
	}

	return total, active, newThisMonth, byRole, growth, nil
}

func (r *UserRepository) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.col.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
