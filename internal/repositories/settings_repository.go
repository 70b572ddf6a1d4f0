package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"geofriends-service/internal/models"
)

const (
	brandingKey = "branding"
	timingsKey  = "timings"
)

// SettingsRepository reads and writes the singleton settings documents.
type SettingsRepository interface {
	GetBranding(ctx context.Context) (models.BrandingSettings, error)
	UpdateBranding(ctx context.Context, settings models.BrandingSettings) error
	GetTimings(ctx context.Context) (models.TimingSettings, error)
	UpdateTimings(ctx context.Context, settings models.TimingSettings) error
}

// SettingsRepo is a mongo implementation of SettingsRepository.
type SettingsRepo struct {
	coll *mongo.Collection
}

// NewSettingsRepo constructs a SettingsRepo.
func NewSettingsRepo(database *mongo.Database) *SettingsRepo {
	return &SettingsRepo{coll: database.Collection("settings")}
}

// GetBranding loads the branding singleton, materializing defaults on first
// read.
func (r *SettingsRepo) GetBranding(ctx context.Context) (models.BrandingSettings, error) {
	var settings models.BrandingSettings
	if err := r.loadOrInitialize(ctx, brandingKey, models.DefaultBranding(), &settings); err != nil {
		return models.BrandingSettings{}, err
	}
	return settings, nil
}

// UpdateBranding merge-writes the branding document.
func (r *SettingsRepo) UpdateBranding(ctx context.Context, settings models.BrandingSettings) error {
	return r.merge(ctx, brandingKey, settings)
}

// GetTimings loads the timings singleton, materializing defaults on first
// read.
func (r *SettingsRepo) GetTimings(ctx context.Context) (models.TimingSettings, error) {
	var settings models.TimingSettings
	if err := r.loadOrInitialize(ctx, timingsKey, models.DefaultTimings(), &settings); err != nil {
		return models.TimingSettings{}, err
	}
	return settings, nil
}

// UpdateTimings merge-writes the timings document.
func (r *SettingsRepo) UpdateTimings(ctx context.Context, settings models.TimingSettings) error {
	return r.merge(ctx, timingsKey, settings)
}

// loadOrInitialize implements defaults-on-first-read for a singleton keyed
// document: absent documents are written with the defaults and returned.
func (r *SettingsRepo) loadOrInitialize(ctx context.Context, key string, defaults any, out any) error {
	raw := bson.M{}
	err := r.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		doc, marshalErr := toDoc(defaults)
		if marshalErr != nil {
			return marshalErr
		}
		doc["_id"] = key
		if _, err := r.coll.InsertOne(ctx, doc); err != nil && !mongo.IsDuplicateKeyError(err) {
			return err
		}
		return remarshal(defaults, out)
	}
	if err != nil {
		return err
	}
	// Merge stored fields over the defaults so legacy documents missing newer
	// fields still come back complete.
	doc, err := toDoc(defaults)
	if err != nil {
		return err
	}
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		doc[k] = v
	}
	return remarshal(doc, out)
}

func (r *SettingsRepo) merge(ctx context.Context, key string, settings any) error {
	doc, err := toDoc(settings)
	if err != nil {
		return err
	}
	_, err = r.coll.UpdateByID(ctx, key, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

func toDoc(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func remarshal(in, out any) error {
	raw, err := bson.Marshal(in)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}
