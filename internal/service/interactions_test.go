package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dosewise/dosewise/internal/models"
)

func TestCheckIsSymmetric(t *testing.T) {
	table := DefaultInteractionTable()

	forward := table.Check("Aspirin", []string{"Warfarin"})
	reverse := table.Check("Warfarin", []string{"Aspirin"})

	require.Len(t, forward, 1)
	require.Len(t, reverse, 1)
	assert.Equal(t, forward[0].Severity, reverse[0].Severity)
	assert.Equal(t, forward[0].Description, reverse[0].Description)
	assert.Equal(t, models.SeverityCritical, forward[0].Severity)
}

func TestCheckIsCaseInsensitive(t *testing.T) {
	table := DefaultInteractionTable()

	matches := table.Check("ASPIRIN", []string{"warfarin"})
	require.Len(t, matches, 1)

	matches = table.Check("  aspirin  ", []string{"WARFARIN"})
	require.Len(t, matches, 1)
}

func TestCheckReturnsAllMatches(t *testing.T) {
	table := DefaultInteractionTable()

	matches := table.Check("Warfarin", []string{"Aspirin", "Ibuprofen", "Metformin"})
	assert.Len(t, matches, 2)
}

func TestCheckNoMatches(t *testing.T) {
	table := DefaultInteractionTable()

	assert.Empty(t, table.Check("Metformin", []string{"Paracetamol"}))
	assert.Empty(t, table.Check("Metformin", nil))
}

func TestCheckDoesNotMatchSelfPair(t *testing.T) {
	table := DefaultInteractionTable()
	assert.Empty(t, table.Check("Warfarin", []string{"Warfarin"}))
}
