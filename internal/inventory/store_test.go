package inventory

import (
	"context"
	"path/filepath"
	"testing"

	premise "github.com/polca/premise-sub000"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activity(code, name, location string, exchanges ...premise.Exchange) *premise.Activity {
	return &premise.Activity{
		Name:             name,
		ReferenceProduct: "clinker",
		Unit:             "kilogram",
		Location:         location,
		Code:             code,
		Exchanges: append([]premise.Exchange{{
			Type:     premise.Production,
			Name:     name,
			Product:  "clinker",
			Unit:     "kilogram",
			Amount:   1,
			Location: location,
		}}, exchanges...),
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "ecoinvent.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	db := premise.NewDatabase("ecoinvent 3.10 cutoff", []*premise.Activity{
		activity("a1", "clinker production", "RoW",
			premise.Exchange{
				Type:        premise.Technosphere,
				Name:        "market for hard coal",
				Product:     "hard coal",
				Unit:        "kilogram",
				Amount:      0.1,
				Location:    "GLO",
				Uncertainty: &premise.Uncertainty{Type: 2, Loc: -2.3, Scale: 0.1},
			},
			premise.Exchange{Type: premise.Biosphere, Name: "Carbon dioxide, fossil", Categories: []string{"air", "urban air close to ground"}, Unit: "kilogram", Amount: 0.9},
		),
		activity("a2", "clinker production", "CH"),
	})
	require.NoError(t, store.Save(ctx, db))

	loaded, err := store.Load(ctx, "ecoinvent 3.10 cutoff")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, db.Activities(), loaded.Activities())
	assert.Equal(t, "ecoinvent 3.10 cutoff", loaded.Activities()[0].Database)

	names, err := store.Databases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ecoinvent 3.10 cutoff"}, names)
}

func TestStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.Save(ctx, premise.NewDatabase("scenario", []*premise.Activity{
		activity("a1", "clinker production", "RoW"),
		activity("a2", "clinker production", "CH"),
	})))
	require.NoError(t, store.Save(ctx, premise.NewDatabase("scenario", []*premise.Activity{
		activity("a3", "clinker production", "EUR"),
	})))
	require.NoError(t, store.Save(ctx, premise.NewDatabase("other", []*premise.Activity{
		activity("b1", "clinker production", "USA"),
	})))

	loaded, err := store.Load(ctx, "scenario")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	assert.Equal(t, "EUR", loaded.Activities()[0].Location)

	names, err := store.Databases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "scenario"}, names)
}

func TestStoreDatabasesSharingCodes(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	baseline := premise.NewDatabase("ecoinvent", []*premise.Activity{
		activity("a1", "clinker production", "RoW"),
		activity("a2", "clinker production", "CH"),
	})
	require.NoError(t, store.Save(ctx, baseline))

	scenario := baseline.Clone()
	scenario.Name = "ecoinvent_remind_SSP2-Base_2030"
	scenario.Activities()[0].Location = "EUR"
	require.NoError(t, store.Save(ctx, scenario))

	names, err := store.Databases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ecoinvent", "ecoinvent_remind_SSP2-Base_2030"}, names)

	loaded, err := store.Load(ctx, "ecoinvent")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, "RoW", loaded.Activities()[0].Location)
	assert.Equal(t, "ecoinvent", loaded.Activities()[0].Database)

	loaded, err = store.Load(ctx, scenario.Name)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, "EUR", loaded.Activities()[0].Location)
	assert.Equal(t, "a1", loaded.Activities()[0].Code)

	// saving the scenario again replaces only its own rows
	require.NoError(t, store.Save(ctx, scenario))
	loaded, err = store.Load(ctx, "ecoinvent")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
}

func TestStoreLoadMissing(t *testing.T) {
	_, err := openStore(t).Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestClean(t *testing.T) {
	messy := activity("", " clinker production ", "CH ",
		premise.Exchange{Type: premise.Technosphere, Name: "market for hard coal ", Product: "hard coal", Unit: "kilogram", Amount: 0.1},
	)
	messy.Exchanges[0].Name = "clinker"
	messy.Exchanges[0].Location = "GLO"

	missing := &premise.Activity{Name: "cement production", ReferenceProduct: "cement", Unit: "kilogram", Location: "CH", Code: "c1"}
	clean := activity("a1", "clinker production", "DE")

	db := premise.NewDatabase("ecoinvent", []*premise.Activity{messy, missing, clean})
	assert.Equal(t, 2, Clean(db))

	assert.Equal(t, "clinker production", messy.Name)
	assert.Equal(t, "CH", messy.Location)
	assert.NotEmpty(t, messy.Code)
	assert.Equal(t, "clinker production", messy.Exchanges[0].Name)
	assert.Equal(t, "CH", messy.Exchanges[0].Location)
	assert.Equal(t, "market for hard coal", messy.Exchanges[1].Name)
	assert.Equal(t, "GLO", messy.Exchanges[1].Location)

	require.NotNil(t, missing.Production())
	assert.Equal(t, 1.0, missing.Production().Amount)

	assert.Zero(t, Clean(db))
}
