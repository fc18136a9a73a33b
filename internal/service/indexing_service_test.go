package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hms-service/internal/domain/heritage"
)

func TestBuildDocumentMapsGroups(t *testing.T) {
	svc := NewIndexingService(nil, testGroups(), nil, zerolog.Nop())
	res := &heritage.Resource{
		ID:   uuid.New(),
		Type: heritage.ArchaeologicalSite,
		Name: "Shell Midden",
		Attributes: map[string][]string{
			heritage.AttrAssignedTo:     {"scout99"},
			heritage.AttrManagementArea: {"Matanzas State Forest"},
		},
	}

	doc, err := svc.BuildDocument(res)
	require.NoError(t, err)
	assert.Equal(t, res.ID, doc.ResourceID)
	assert.Equal(t, heritage.ArchaeologicalSite, doc.Type)
	assert.Equal(t, []string{"scout99"}, doc.GroupValues("as-assigned-to"))
	assert.Equal(t, []string{"Matanzas State Forest"}, doc.GroupValues("as-mgmt-area"))
}

func TestBuildDocumentSkipsUnmappedAttributes(t *testing.T) {
	svc := NewIndexingService(nil, testGroups(), nil, zerolog.Nop())
	res := &heritage.Resource{
		ID:   uuid.New(),
		Type: heritage.ArchaeologicalSite,
		Attributes: map[string][]string{
			heritage.AttrManagementArea: {"Matanzas State Forest"},
			"Field Notes":               {"sandy soil"},
		},
	}

	doc, err := svc.BuildDocument(res)
	require.NoError(t, err)
	assert.Len(t, doc.Groups, 1)
	assert.Empty(t, doc.GroupValues("Field Notes"))
}
