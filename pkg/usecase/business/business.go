package business

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/aistaff/pkg/usecase/access"
	"github.com/m-mizutani/goerr/v2"
)

// UseCase provides business profile operations
type UseCase struct {
	repo repository.Repository
	now  func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a new business UseCase instance
func New(repo repository.Repository, opts ...Option) *UseCase {
	uc := &UseCase{
		repo: repo,
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// CreateInput is a new business profile. It can be decoded from a JSON body or
// from a YAML profile file.
type CreateInput struct {
	Name           string            `json:"name" yaml:"name"`
	Industry       string            `json:"industry" yaml:"industry"`
	Description    string            `json:"description" yaml:"description"`
	TargetAudience string            `json:"targetAudience" yaml:"target_audience"`
	BrandTone      string            `json:"brandTone" yaml:"brand_tone"`
	LogoURL        string            `json:"logoUrl" yaml:"logo_url"`
	SocialLinks    map[string]string `json:"socialLinks" yaml:"social_links"`
	BrandColors    map[string]string `json:"brandColors" yaml:"brand_colors"`
	Goals          []string          `json:"goals" yaml:"goals"`
}

// UpdateInput changes only the fields that are set
type UpdateInput struct {
	Name           *string           `json:"name"`
	Industry       *string           `json:"industry"`
	Description    *string           `json:"description"`
	TargetAudience *string           `json:"targetAudience"`
	BrandTone      *string           `json:"brandTone"`
	LogoURL        *string           `json:"logoUrl"`
	SocialLinks    map[string]string `json:"socialLinks"`
	BrandColors    map[string]string `json:"brandColors"`
	Goals          []string          `json:"goals"`
}

func validateLogoURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return goerr.Wrap(model.ErrInvalidInput, "logo URL must be an http(s) URL", goerr.V("logo_url", raw))
	}
	return nil
}

// Create registers a new business owned by userID
func (u *UseCase) Create(ctx context.Context, userID model.UserID, input CreateInput) (*model.Business, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "business name is required")
	}
	if err := validateLogoURL(input.LogoURL); err != nil {
		return nil, err
	}

	brandTone := strings.TrimSpace(input.BrandTone)
	if brandTone == "" {
		brandTone = model.DefaultBrandTone
	}

	now := u.now()
	business := &model.Business{
		ID:             model.NewBusinessID(),
		UserID:         userID,
		Name:           name,
		Industry:       strings.TrimSpace(input.Industry),
		Description:    strings.TrimSpace(input.Description),
		TargetAudience: strings.TrimSpace(input.TargetAudience),
		BrandTone:      brandTone,
		LogoURL:        input.LogoURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.SocialLinks != nil {
		business.SocialLinks = input.SocialLinks
	}
	if input.BrandColors != nil {
		business.BrandColors = input.BrandColors
	}
	if input.Goals != nil {
		business.Goals = input.Goals
	}

	if err := u.repo.PutBusiness(ctx, business); err != nil {
		return nil, goerr.Wrap(err, "failed to save business")
	}
	return business, nil
}

// List returns the businesses of the user, newest first
func (u *UseCase) List(ctx context.Context, userID model.UserID) ([]*model.Business, error) {
	businesses, err := u.repo.ListBusinessesByUser(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list businesses", goerr.V("user_id", userID))
	}
	if businesses == nil {
		businesses = []*model.Business{}
	}
	return businesses, nil
}

// Get returns a business owned by the user
func (u *UseCase) Get(ctx context.Context, userID model.UserID, id model.BusinessID) (*model.Business, error) {
	return access.OwnedBusiness(ctx, u.repo, userID, id)
}

// Update applies a partial change to a business owned by the user. Agents keep
// their stored profile until their memory is refreshed.
func (u *UseCase) Update(ctx context.Context, userID model.UserID, id model.BusinessID, input UpdateInput) (*model.Business, error) {
	business, err := access.OwnedBusiness(ctx, u.repo, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, goerr.Wrap(model.ErrInvalidInput, "business name must not be empty")
		}
		business.Name = name
	}
	if input.Industry != nil {
		business.Industry = strings.TrimSpace(*input.Industry)
	}
	if input.Description != nil {
		business.Description = strings.TrimSpace(*input.Description)
	}
	if input.TargetAudience != nil {
		business.TargetAudience = strings.TrimSpace(*input.TargetAudience)
	}
	if input.BrandTone != nil {
		business.BrandTone = strings.TrimSpace(*input.BrandTone)
	}
	if input.LogoURL != nil {
		if err := validateLogoURL(*input.LogoURL); err != nil {
			return nil, err
		}
		business.LogoURL = *input.LogoURL
	}
	if input.SocialLinks != nil {
		business.SocialLinks = input.SocialLinks
	}
	if input.BrandColors != nil {
		business.BrandColors = input.BrandColors
	}
	if input.Goals != nil {
		business.Goals = input.Goals
	}
	business.UpdatedAt = u.now()

	if err := u.repo.PutBusiness(ctx, business); err != nil {
		return nil, goerr.Wrap(err, "failed to save business", goerr.V("business_id", id))
	}
	return business, nil
}

// Delete removes a business owned by the user with its agents and their records
func (u *UseCase) Delete(ctx context.Context, userID model.UserID, id model.BusinessID) error {
	if _, err := access.OwnedBusiness(ctx, u.repo, userID, id); err != nil {
		return err
	}
	if err := u.repo.DeleteBusiness(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete business", goerr.V("business_id", id))
	}
	return nil
}
