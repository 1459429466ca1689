package foodkeeper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableLoads(t *testing.T) {
	assert.Greater(t, Default().Len(), 10)
}

func TestLookup(t *testing.T) {
	table := Default()

	tests := []struct {
		query    string
		wantName string
		risk     bool
	}{
		{"Romaine Lettuce Hearts", "Romaine lettuce", true},
		{"plain steamed BROCCOLI", "Broccoli", false},
		{"Fresh Chicken thighs", "Chicken breast", true},
		{"organic whole milk", "Milk", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := table.Lookup(tt.query)
			require.NotNil(t, rec)
			assert.Equal(t, tt.wantName, rec.Name)
			assert.Equal(t, tt.risk, rec.MentionsRisk())
		})
	}
}

func TestLookupNoMatch(t *testing.T) {
	assert.Nil(t, Default().Lookup("xylophone"))
	assert.Nil(t, Default().Lookup(""))
	var rec *Record
	assert.False(t, rec.MentionsRisk())
}

func TestLookupFirstMatchWins(t *testing.T) {
	table, err := Parse([]byte(`{"items":[
		{"category":"beef","name":"Steak","notes":"a"},
		{"category":"ground beef","name":"Mince","notes":"b"}
	]}`))
	require.NoError(t, err)

	rec := table.Lookup("ground beef")
	require.NotNil(t, rec)
	assert.Equal(t, "a", rec.Notes)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items":[{"category":"kale","name":"Kale","notes":"ok","fridge_days":5,"freezer_months":8}]}`), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	rec := table.Lookup("baby kale")
	require.NotNil(t, rec)
	assert.Equal(t, "Follow storage: 5 days in fridge; 8 months frozen.", rec.Summary())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
