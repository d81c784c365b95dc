package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityValidRequiresExactlyOneField(t *testing.T) {
	assert.True(t, Identity{UserID: "u1"}.Valid())
	assert.True(t, Identity{SessionID: "s1"}.Valid())
	assert.False(t, Identity{}.Valid())
	assert.False(t, Identity{UserID: "u1", SessionID: "s1"}.Valid())
}

func TestIdentityKeyDistinguishesKind(t *testing.T) {
	assert.Equal(t, "user:u1", Identity{UserID: "u1"}.Key())
	assert.Equal(t, "session:s1", Identity{SessionID: "s1"}.Key())
	// 同一裸 ID 作为用户和会话不会撞键。
	assert.NotEqual(t, Identity{UserID: "x"}.Key(), Identity{SessionID: "x"}.Key())
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "go", NormalizeQuery("  Go  "))
	assert.Equal(t, "mountain bike", NormalizeQuery("Mountain Bike"))
	assert.Equal(t, "", NormalizeQuery("   "))
}

func TestIsPubliclyVisible(t *testing.T) {
	active := true
	inactive := false

	visible := &EsListingDocument{Status: ListingStatusActive, UserIsActive: &active}
	assert.True(t, visible.IsPubliclyVisible())

	// user_is_active 缺失的历史文档视为有效。
	legacy := &EsListingDocument{Status: ListingStatusActive}
	assert.True(t, legacy.IsPubliclyVisible())

	hiddenSeller := &EsListingDocument{Status: ListingStatusActive, UserIsActive: &inactive}
	assert.False(t, hiddenSeller.IsPubliclyVisible())

	sold := &EsListingDocument{Status: ListingStatusSold, UserIsActive: &active}
	assert.False(t, sold.IsPubliclyVisible())
}

func TestBuildSuggestInputsWeightsTitleAboveCategory(t *testing.T) {
	inputs := BuildSuggestInputs("City Bike", "Bicycles")
	require.Len(t, inputs, 2)
	assert.Equal(t, []string{"City Bike"}, inputs[0].Input)
	assert.Equal(t, 10, inputs[0].Weight)
	assert.Equal(t, []string{"Bicycles"}, inputs[1].Input)
	assert.Equal(t, 5, inputs[1].Weight)
}

func TestBuildSuggestInputsSkipsBlankFields(t *testing.T) {
	inputs := BuildSuggestInputs("City Bike", "   ")
	require.Len(t, inputs, 1)
	assert.Equal(t, []string{"City Bike"}, inputs[0].Input)

	assert.Empty(t, BuildSuggestInputs("", ""))
}

func TestListingPayloadToDocumentDerivesSuggest(t *testing.T) {
	doc := ListingPayload{ID: "l1", Title: "City Bike", CategoryName: "Bicycles"}.ToDocument()
	assert.Equal(t, "l1", doc.ID)
	require.Len(t, doc.Suggest, 2)
	assert.Equal(t, []string{"City Bike"}, doc.Suggest[0].Input)
}
