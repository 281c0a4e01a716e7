package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/helparo/admin-service/internal/domain"
	"github.com/helparo/admin-service/internal/store"
)

const (
	defaultDirectoryLimit = 50
	maxDirectoryLimit     = 200
)

// Directory serves the admin customer and helper list views.
type Directory struct {
	repo store.Repository
}

// NewDirectory creates a new Directory.
func NewDirectory(repo store.Repository) *Directory {
	return &Directory{repo: repo}
}

// ListCustomers returns one page of customer profiles.
func (d *Directory) ListCustomers(ctx context.Context, filter domain.ProfileListFilter) (*domain.ProfileListPage, error) {
	filter.Role = domain.RoleCustomer
	filter.VerificationStatus = ""
	return d.list(ctx, filter)
}

// ListHelpers returns one page of helper profiles with their helper summary joined.
func (d *Directory) ListHelpers(ctx context.Context, filter domain.ProfileListFilter) (*domain.ProfileListPage, error) {
	filter.Role = domain.RoleHelper
	return d.list(ctx, filter)
}

func (d *Directory) list(ctx context.Context, filter domain.ProfileListFilter) (*domain.ProfileListPage, error) {
	filter = normalizeDirectoryFilter(filter)
	page, err := d.repo.ListProfiles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", filter.Role, err)
	}
	if page.Data == nil {
		page.Data = []domain.ProfileSummary{}
	}
	return page, nil
}

func normalizeDirectoryFilter(filter domain.ProfileListFilter) domain.ProfileListFilter {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	filter.VerificationStatus = strings.ToLower(strings.TrimSpace(filter.VerificationStatus))

	switch filter.SortBy {
	case "created_at", "full_name", "email", "status":
	default:
		filter.SortBy = "created_at"
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultDirectoryLimit
	}
	if filter.Limit > maxDirectoryLimit {
		filter.Limit = maxDirectoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}
