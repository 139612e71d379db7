package static

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vocab-api/internal/domain/entity"
	apperrors "github.com/yourusername/vocab-api/internal/pkg/errors"
)

func TestWordRepo(t *testing.T) {
	// Arrange
	words := []entity.Word{
		{Word: "Apple", Meaning: "fruit", Level: entity.LevelA1},
		{Word: "river", Meaning: "water", Level: entity.LevelA2},
	}
	repo := NewWordRepo(words)

	// Act
	found, err := repo.GetByWord(" apple ")
	_, missingErr := repo.GetByWord("stone")
	all := repo.All()
	all[0].Meaning = "changed"

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "fruit", found.Meaning)
	assert.ErrorIs(t, missingErr, apperrors.ErrNotFound)
	assert.Len(t, repo.All(), 2)
	assert.Equal(t, "fruit", repo.All()[0].Meaning, "внешнее изменение не затрагивает словарь")
}
