package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helparo/admin-service/internal/domain"
)

func TestBuildDirectoryWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    domain.ProfileListFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "role only",
			filter:    domain.ProfileListFilter{Role: domain.RoleCustomer},
			wantWhere: "p.role = $1",
			wantArgs:  []any{"customer"},
		},
		{
			name:      "all status adds nothing",
			filter:    domain.ProfileListFilter{Role: domain.RoleCustomer, Status: "all"},
			wantWhere: "p.role = $1",
			wantArgs:  []any{"customer"},
		},
		{
			name:      "banned maps to is_banned",
			filter:    domain.ProfileListFilter{Role: domain.RoleCustomer, Status: "banned"},
			wantWhere: "p.role = $1 AND p.is_banned = TRUE",
			wantArgs:  []any{"customer"},
		},
		{
			name:      "search and exact status",
			filter:    domain.ProfileListFilter{Role: domain.RoleCustomer, Search: " asha ", Status: "suspended"},
			wantWhere: "p.role = $1 AND (p.email ILIKE $2 OR p.full_name ILIKE $2 OR p.phone ILIKE $2) AND p.status = $3",
			wantArgs:  []any{"customer", "%asha%", "suspended"},
		},
		{
			name:      "verification status only applies to helpers",
			filter:    domain.ProfileListFilter{Role: domain.RoleCustomer, VerificationStatus: "pending"},
			wantWhere: "p.role = $1",
			wantArgs:  []any{"customer"},
		},
		{
			name:      "helper verification status",
			filter:    domain.ProfileListFilter{Role: domain.RoleHelper, VerificationStatus: "pending"},
			wantWhere: "p.role = $1 AND hp.verification_status = $2",
			wantArgs:  []any{"helper", "pending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildDirectoryWhere(tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestMaskAccountNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "123456789012", want: "********9012"},
		{input: " 98765 ", want: "*8765"},
		{input: "1234", want: "1234"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskAccountNumber(tt.input))
		})
	}
}

func TestNewPostgresRepository_DefaultsQueryTimeout(t *testing.T) {
	repo := NewPostgresRepository(nil, 0)
	require.NotNil(t, repo)
	assert.Equal(t, defaultQueryTimeout, repo.queryTimeout)

	repo = NewPostgresRepository(nil, 2*time.Second)
	assert.Equal(t, 2*time.Second, repo.queryTimeout)
}

func TestBuildCategoryLookup(t *testing.T) {
	query, args := buildCategoryLookup([]string{
		"0B6A7C1E-1111-4A2B-9C3D-000000000002",
		" 0b6a7c1e-1111-4a2b-9c3d-000000000002 ",
		"5f0c8e2a-2222-4b3c-8d4e-000000000001",
		"",
	})

	assert.Contains(t, query, "WHERE id = ANY($1::uuid[])")
	assert.NotContains(t, query, "id::text = ANY")
	require.Len(t, args, 1)
	assert.Equal(t, []string{
		"0b6a7c1e-1111-4a2b-9c3d-000000000002",
		"5f0c8e2a-2222-4b3c-8d4e-000000000001",
	}, args[0])
}

func TestBuildCategoryLookup_Empty(t *testing.T) {
	query, args := buildCategoryLookup([]string{" ", ""})
	assert.Empty(t, query)
	assert.Nil(t, args)

	repo := NewPostgresRepository(nil, 0)
	categories, err := repo.ListCategoriesByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, categories)
}
