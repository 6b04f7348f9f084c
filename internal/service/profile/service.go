// Package profile covers the engine-owned slices of a user's profile:
// location reporting (with best-effort geocode enrichment) and interest tags.
package profile

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/heartlink/discovery/internal/app"
	"github.com/heartlink/discovery/internal/apperr"
	"github.com/heartlink/discovery/internal/db"
	"github.com/heartlink/discovery/internal/repository"
)

type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
	}
}

// LocationUpdate is a reported position. City/Country are optional hints; when
// absent they are filled by reverse geocoding if the provider is up.
type LocationUpdate struct {
	Latitude  float64
	Longitude float64
	City      string
	Country   string
	Source    string
}

// ReportLocation appends a location row for the user. Geocoding is strictly
// best-effort: provider failures fall back to the caller-supplied city and
// country, never failing the write.
func (s *Service) ReportLocation(ctx context.Context, userID uint64, upd LocationUpdate) (*db.Location, error) {
	if upd.Latitude < -90 || upd.Latitude > 90 {
		return nil, apperr.Validation("latitude out of range")
	}
	if upd.Longitude < -180 || upd.Longitude > 180 {
		return nil, apperr.Validation("longitude out of range")
	}

	switch upd.Source {
	case "":
		upd.Source = db.LocationSourceManual
	case db.LocationSourceGPS, db.LocationSourceIP, db.LocationSourceManual:
	default:
		return nil, apperr.Validation("source must be GPS, IP or MANUAL")
	}

	if _, err := s.userRepo.GetUser(ctx, userID); err != nil {
		return nil, apperr.Wrap(err, "user not found")
	}

	loc := &db.Location{
		UserID:    userID,
		Latitude:  upd.Latitude,
		Longitude: upd.Longitude,
		City:      strings.TrimSpace(upd.City),
		Country:   strings.TrimSpace(upd.Country),
		Source:    upd.Source,
	}

	if loc.City == "" || loc.Country == "" {
		if place, err := s.appCtx.Geocoder.Reverse(ctx, loc.Latitude, loc.Longitude); err == nil {
			if loc.City == "" {
				loc.City = place.City
			}
			if loc.Country == "" {
				loc.Country = place.Country
			}
		} else {
			s.appCtx.Logger.Debug("reverse geocode unavailable",
				"user_id", userID, "err", err)
		}
	}

	if err := s.userRepo.AddLocation(ctx, loc); err != nil {
		return nil, apperr.Wrap(err, "user not found")
	}
	return loc, nil
}

// Location returns the user's most recent position, or NotFound when none was
// ever reported.
func (s *Service) Location(ctx context.Context, userID uint64) (*db.Location, error) {
	loc, err := s.userRepo.LatestLocation(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no location on record")
		}
		return nil, apperr.Wrap(err, "location unavailable")
	}
	return loc, nil
}

// AttachTag links an interest tag to the user. Idempotent.
func (s *Service) AttachTag(ctx context.Context, userID, tagID uint64) error {
	if _, err := s.userRepo.GetUser(ctx, userID); err != nil {
		return apperr.Wrap(err, "user not found")
	}
	if err := s.userRepo.AttachTag(ctx, userID, tagID); err != nil {
		return apperr.Wrap(err, "tag not found")
	}
	return nil
}

// DetachTag removes a tag link. Removing an absent link is a no-op success.
func (s *Service) DetachTag(ctx context.Context, userID, tagID uint64) error {
	if err := s.userRepo.DetachTag(ctx, userID, tagID); err != nil {
		return apperr.Wrap(err, "tag not found")
	}
	return nil
}

// Tags lists the user's tag ids.
func (s *Service) Tags(ctx context.Context, userID uint64) ([]uint64, error) {
	ids, err := s.userRepo.TagIDs(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "tags unavailable")
	}
	return ids, nil
}
