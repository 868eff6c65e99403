package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"SmartHealth/cache"
	"SmartHealth/models"
)

const (
	LocationCacheExpiry = 7 * 24 * time.Hour
	locationsCacheKey   = "locations_cache"
)

type LocationRepository interface {
	ListLocations(ctx context.Context) ([]models.Location, error)
	GetLocation(ctx context.Context, id uint) (*models.Location, error)
	CreateLocation(ctx context.Context, location *models.Location) error
	HospitalsByLocation(ctx context.Context, locationID uint) ([]models.Hospital, error)
	GetHospital(ctx context.Context, id uint) (*models.Hospital, error)
	CreateHospital(ctx context.Context, hospital *models.Hospital) error
}

type locationRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewLocationRepository(db *gorm.DB, cache *cache.Cache) LocationRepository {
	return &locationRepository{db: db, cache: cache}
}

func (r *locationRepository) ListLocations(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	found, err := r.cache.GetJSON(ctx, locationsCacheKey, &locations)
	if err != nil {
		log.Warn().Err(err).Msg("failed to get locations from cache")
	}
	if found {
		return locations, nil
	}

	if err := r.db.WithContext(ctx).Order("name").Find(&locations).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list locations")
	}
	if err := r.cache.SetJSON(ctx, locationsCacheKey, locations, LocationCacheExpiry); err != nil {
		log.Warn().Err(err).Msg("failed to set locations in cache")
	}
	return locations, nil
}

func (r *locationRepository) GetLocation(ctx context.Context, id uint) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).First(&location, id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get location")
	}
	return &location, nil
}

func (r *locationRepository) CreateLocation(ctx context.Context, location *models.Location) error {
	if err := r.db.WithContext(ctx).Create(location).Error; err != nil {
		return translate(err, "failed to create location")
	}
	return r.cache.Delete(ctx, locationsCacheKey)
}

func (r *locationRepository) HospitalsByLocation(ctx context.Context, locationID uint) ([]models.Hospital, error) {
	cacheKey := r.getHospitalsCacheKey(locationID)
	var hospitals []models.Hospital
	found, err := r.cache.GetJSON(ctx, cacheKey, &hospitals)
	if err != nil {
		log.Warn().Err(err).Str("key", cacheKey).Msg("failed to get hospitals from cache")
	}
	if found {
		return hospitals, nil
	}

	err = r.db.WithContext(ctx).
		Where("location_id = ?", locationID).
		Order("name").
		Find(&hospitals).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list hospitals")
	}
	if err := r.cache.SetJSON(ctx, cacheKey, hospitals, LocationCacheExpiry); err != nil {
		log.Warn().Err(err).Str("key", cacheKey).Msg("failed to set hospitals in cache")
	}
	return hospitals, nil
}

func (r *locationRepository) GetHospital(ctx context.Context, id uint) (*models.Hospital, error) {
	var hospital models.Hospital
	if err := r.db.WithContext(ctx).First(&hospital, id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get hospital")
	}
	return &hospital, nil
}

func (r *locationRepository) CreateHospital(ctx context.Context, hospital *models.Hospital) error {
	if err := r.db.WithContext(ctx).Create(hospital).Error; err != nil {
		return translate(err, "failed to create hospital")
	}
	return r.cache.Delete(ctx, r.getHospitalsCacheKey(hospital.LocationID))
}

func (r *locationRepository) getHospitalsCacheKey(locationID uint) string {
	return fmt.Sprintf("hospitals_cache:%d", locationID)
}
