package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/ports"
)

var _ ports.Backend = (*Backend)(nil)

// Backend implements ports.Backend on MongoDB. It enforces the same rules as
// the managed backend: unique usernames, per-tier quotas, normalized tag
// names and the tag-in-use guard. Multi-document writes are not transactional.
type Backend struct {
	client    *mongo.Client
	db        *mongo.Database
	profiles  *mongo.Collection
	referrals *mongo.Collection
	tags      *mongo.Collection
	audit     *mongo.Collection
	now       func() time.Time
	newID     func() string
}

func NewBackend(db *mongo.Database) *Backend {
	return &Backend{
		db:        db,
		profiles:  db.Collection(collectionProfiles),
		referrals: db.Collection(collectionReferrals),
		tags:      db.Collection(collectionTags),
		audit:     db.Collection(collectionTierChanges),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// EnsureIndexes creates the indexes the uniqueness rules rely on.
func (b *Backend) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := b.profiles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("profiles_username_key")},
		{Keys: bson.D{{Key: "privy_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("profiles_privy_id_key")},
	}); err != nil {
		return fmt.Errorf("profile indexes: %w", err)
	}
	if _, err := b.referrals.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "tag_ids", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("referral indexes: %w", err)
	}
	if _, err := b.tags.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("tag indexes: %w", err)
	}
	return nil
}

func remote(op string, err error) error {
	return &domain.RemoteError{Op: op, Err: err}
}

func (b *Backend) findProfile(ctx context.Context, op string, filter bson.M) (domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d profileDoc
	if err := b.profiles.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Profile{}, domain.ErrProfileNotFound
		}
		return domain.Profile{}, remote(op, err)
	}
	return d.toDomain(), nil
}

func (b *Backend) GetProfileByPrivyID(ctx context.Context, privyID string) (domain.Profile, error) {
	return b.findProfile(ctx, "get_profile_by_privy_id", bson.M{"privy_id": privyID})
}

func (b *Backend) GetProfileByID(ctx context.Context, id string) (domain.Profile, error) {
	return b.findProfile(ctx, "get profile", bson.M{"_id": id})
}

func (b *Backend) GetProfileByUsername(ctx context.Context, username string) (domain.Profile, error) {
	return b.findProfile(ctx, "get profile by username", bson.M{"username": username})
}

func (b *Backend) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := b.profiles.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, remote("check username", err)
	}
	return n == 0, nil
}

func (b *Backend) ClaimUsername(ctx context.Context, in domain.NewProfile) (domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	d := newProfileDoc(b.newID(), in, b.now())
	if _, err := b.profiles.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "privy_id") {
				return domain.Profile{}, domain.NewConflict(domain.ConflictProfileExists)
			}
			return domain.Profile{}, domain.NewConflict(domain.ConflictUsernameTaken)
		}
		return domain.Profile{}, remote("claim username", err)
	}
	return d.toDomain(), nil
}

func profileUpdateSet(upd domain.ProfileUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.AvatarURL != nil {
		set["avatar_url"] = *upd.AvatarURL
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if s := upd.SocialLinks; s != nil {
		set["social_links"] = socialDoc{Twitter: s.Twitter, Instagram: s.Instagram, LinkedIn: s.LinkedIn, Website: s.Website}
	}
	if t := upd.Theme; t != nil {
		set["theme"] = themeDoc{Primary: t.Primary, Secondary: t.Secondary, Body: t.Body, Card: t.Card}
	}
	return set
}

func (b *Backend) updateProfile(ctx context.Context, op, id string, set bson.M) (domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d profileDoc
	err := b.profiles.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Profile{}, domain.ErrProfileNotFound
		}
		return domain.Profile{}, remote(op, err)
	}
	return d.toDomain(), nil
}

func (b *Backend) UpdateProfile(ctx context.Context, profileID string, upd domain.ProfileUpdate) (domain.Profile, error) {
	return b.updateProfile(ctx, "update_profile_v2", profileID, profileUpdateSet(upd, b.now()))
}

func (b *Backend) SetStripeCustomerID(ctx context.Context, profileID, customerID string) error {
	_, err := b.updateProfile(ctx, "set customer id", profileID, bson.M{"stripe_customer_id": customerID, "updated_at": b.now()})
	return err
}

func (b *Backend) tagMap(ctx context.Context, ownerID string) (map[string]domain.Tag, error) {
	cur, err := b.tags.Find(ctx, bson.M{"user_id": ownerID})
	if err != nil {
		return nil, err
	}
	var docs []tagDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make(map[string]domain.Tag, len(docs))
	for _, d := range docs {
		out[d.ID] = d.toDomain(0)
	}
	return out, nil
}

func (b *Backend) ListReferrals(ctx context.Context, ownerID string) ([]domain.Referral, error) {
	const op = "list referrals"
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tags, err := b.tagMap(ctx, ownerID)
	if err != nil {
		return nil, remote(op, err)
	}
	cur, err := b.referrals.Find(ctx, bson.M{"user_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, remote(op, err)
	}
	var docs []referralDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, remote(op, err)
	}
	out := make([]domain.Referral, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain(tags))
	}
	return out, nil
}

// resolveTags upserts names and returns their ids. Creating a tag past the
// owner's tag quota fails with DomainConflict{tag_limit}.
func (b *Backend) resolveTags(ctx context.Context, p domain.Profile, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range domain.NormalizeTagNames(names) {
		t, err := b.upsertTag(ctx, p, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (b *Backend) upsertTag(ctx context.Context, p domain.Profile, name string) (domain.Tag, error) {
	const op = "manage_tag"
	var existing tagDoc
	err := b.tags.FindOne(ctx, bson.M{"user_id": p.ID, "name": name}).Decode(&existing)
	switch {
	case err == nil:
		return existing.toDomain(0), nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return domain.Tag{}, remote(op, err)
	}

	n, err := b.tags.CountDocuments(ctx, bson.M{"user_id": p.ID})
	if err != nil {
		return domain.Tag{}, remote(op, err)
	}
	if int(n) >= p.MaxTags {
		return domain.Tag{}, domain.NewConflict(domain.ConflictTagLimit)
	}

	d := tagDoc{ID: b.newID(), UserID: p.ID, Name: name, CreatedAt: b.now()}
	if _, err := b.tags.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a race with a concurrent upsert of the same name.
			if err := b.tags.FindOne(ctx, bson.M{"user_id": p.ID, "name": name}).Decode(&existing); err == nil {
				return existing.toDomain(0), nil
			}
		}
		return domain.Tag{}, remote(op, err)
	}
	return d.toDomain(0), nil
}

func (b *Backend) CreateReferral(ctx context.Context, ownerID string, in domain.ReferralInput) (domain.Referral, error) {
	const op = "create_referral"
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	p, err := b.GetProfileByID(ctx, ownerID)
	if err != nil {
		return domain.Referral{}, err
	}
	n, err := b.referrals.CountDocuments(ctx, bson.M{"user_id": ownerID})
	if err != nil {
		return domain.Referral{}, remote(op, err)
	}
	if int(n) >= p.MaxReferrals {
		return domain.Referral{}, domain.NewConflict(domain.ConflictReferralLimit)
	}

	tagIDs, err := b.resolveTags(ctx, p, in.TagNames)
	if err != nil {
		return domain.Referral{}, err
	}
	now := b.now()
	d := referralDoc{
		ID:          b.newID(),
		UserID:      ownerID,
		Title:       in.Title,
		Description: in.Description,
		URL:         in.URL,
		ImageURL:    in.ImageURL,
		Subtitle:    in.Subtitle,
		TagIDs:      tagIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := b.referrals.InsertOne(ctx, d); err != nil {
		return domain.Referral{}, remote(op, err)
	}
	tags, err := b.tagMap(ctx, ownerID)
	if err != nil {
		return domain.Referral{}, remote(op, err)
	}
	return d.toDomain(tags), nil
}

func (b *Backend) UpdateReferral(ctx context.Context, id, ownerID string, in domain.ReferralInput) (domain.Referral, error) {
	const op = "update_referral"
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	p, err := b.GetProfileByID(ctx, ownerID)
	if err != nil {
		return domain.Referral{}, err
	}
	tagIDs, err := b.resolveTags(ctx, p, in.TagNames)
	if err != nil {
		return domain.Referral{}, err
	}

	var d referralDoc
	err = b.referrals.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": ownerID},
		bson.M{"$set": bson.M{
			"title":       in.Title,
			"description": in.Description,
			"url":         in.URL,
			"image_url":   in.ImageURL,
			"subtitle":    in.Subtitle,
			"tag_ids":     tagIDs,
			"updated_at":  b.now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Referral{}, domain.ErrReferralNotFound
		}
		return domain.Referral{}, remote(op, err)
	}
	tags, err := b.tagMap(ctx, ownerID)
	if err != nil {
		return domain.Referral{}, remote(op, err)
	}
	return d.toDomain(tags), nil
}

func (b *Backend) DeleteReferral(ctx context.Context, id, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := b.referrals.DeleteOne(ctx, bson.M{"_id": id, "user_id": ownerID})
	if err != nil {
		return remote("delete_referral", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrReferralNotFound
	}
	return nil
}

func (b *Backend) tagUsage(ctx context.Context, ownerID string) (map[string]int, error) {
	cur, err := b.referrals.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": ownerID}}},
		{{Key: "$unwind", Value: "$tag_ids"}},
		{{Key: "$group", Value: bson.M{"_id": "$tag_ids", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID string `bson:"_id"`
		N  int    `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.ID] = r.N
	}
	return out, nil
}

func (b *Backend) ListTags(ctx context.Context, ownerID string) ([]domain.Tag, error) {
	const op = "list tags"
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := b.tags.Find(ctx, bson.M{"user_id": ownerID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, remote(op, err)
	}
	var docs []tagDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, remote(op, err)
	}
	usage, err := b.tagUsage(ctx, ownerID)
	if err != nil {
		return nil, remote(op, err)
	}
	out := make([]domain.Tag, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain(usage[d.ID]))
	}
	return out, nil
}

func (b *Backend) ManageTag(ctx context.Context, ownerID, name string) (domain.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	name = domain.NormalizeTagName(name)
	if name == "" {
		return domain.Tag{}, &domain.ValidationError{Fields: []domain.FieldError{{Field: "name", Message: "Tag name is required"}}}
	}
	p, err := b.GetProfileByID(ctx, ownerID)
	if err != nil {
		return domain.Tag{}, err
	}
	return b.upsertTag(ctx, p, name)
}

func (b *Backend) DeleteTag(ctx context.Context, id, ownerID string) error {
	const op = "delete_tag"
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := b.referrals.CountDocuments(ctx, bson.M{"user_id": ownerID, "tag_ids": id})
	if err != nil {
		return remote(op, err)
	}
	if n > 0 {
		return &domain.DomainConflict{
			Kind:    domain.ConflictTagInUse,
			Message: fmt.Sprintf("Tag is in use by %d referral(s). Remove it from those referrals first.", n),
		}
	}
	res, err := b.tags.DeleteOne(ctx, bson.M{"_id": id, "user_id": ownerID})
	if err != nil {
		return remote(op, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTagNotFound
	}
	return nil
}

func (b *Backend) AdminListProfiles(ctx context.Context, query string) ([]domain.Profile, error) {
	const op = "admin_get_profiles"
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if q := strings.TrimSpace(query); q != "" {
		rx := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"username": rx}, bson.M{"email": rx}}
	}
	cur, err := b.profiles.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, remote(op, err)
	}
	var docs []profileDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, remote(op, err)
	}
	out := make([]domain.Profile, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// UpdateUserTier resets the maxima to the tier's plan and records the change
// in the tier_changes audit collection. The audit insert is best effort.
func (b *Backend) UpdateUserTier(ctx context.Context, profileID string, tier domain.Tier, reason string) error {
	plan := domain.PlanFor(tier)
	now := b.now()
	if _, err := b.updateProfile(ctx, "admin_update_user_tier", profileID, bson.M{
		"tier":          string(tier),
		"max_referrals": plan.MaxReferrals,
		"max_tags":      plan.MaxTags,
		"updated_at":    now,
	}); err != nil {
		return err
	}

	_, _ = b.audit.InsertOne(ctx, bson.M{
		"profile_id": profileID,
		"tier":       string(tier),
		"reason":     reason,
		"changed_at": now,
	})
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := b.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return remote("ping", err)
	}
	return nil
}
