package services

import (
	"context"
	"errors"
	"testing"

	"facility-backend/apperrors"
	"facility-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingService_CreateTrimsAndValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.mappings.Create(ctx, "  Хирургия ", "Surgery\t")
	require.NoError(t, err)
	assert.Equal(t, "Хирургия", m.ADepartmentName)
	assert.Equal(t, "Surgery", m.BDepartmentName)
	assert.NotZero(t, m.ID)

	_, err = f.mappings.Create(ctx, "   ", "Surgery")
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "aDepartmentName", ve.Field)

	_, err = f.mappings.Create(ctx, "Хирургия", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestMappingService_AllowsDuplicatesAndOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mapping(t, "Хирургия", "Surgery")
	f.mapping(t, "Кардиология", "Cardiology")
	f.mapping(t, "Хирургия", "Surgery")

	list, err := f.mappings.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Кардиология", list[0].ADepartmentName)
	assert.Equal(t, list[1].ADepartmentName, list[2].ADepartmentName)
	assert.Less(t, list[1].ID, list[2].ID)
}

func TestMappingService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.mapping(t, "Хирургия", "Surgery")

	require.NoError(t, f.mappings.Delete(ctx, m.ID))
	assert.True(t, apperrors.IsNotFound(f.mappings.Delete(ctx, m.ID)))

	_, err := f.mappings.Get(ctx, m.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMappingService_CreatePersistenceError(t *testing.T) {
	f := newFixture(t)
	f.store.InjectFault("CreateMapping", errors.New("disk full"))

	_, err := f.mappings.Create(context.Background(), "A", "B")
	assert.True(t, apperrors.IsPersistence(err))
}

func TestMappingService_DeleteDoesNotCascade(t *testing.T) {
	f, m := surgeryFixture(t)
	ctx := context.Background()

	_, err := f.staging.Materialize(ctx, *m)
	require.NoError(t, err)
	_, err = f.reconcile.LinkDepartments(ctx, m.ID)
	require.NoError(t, err)
	sum, err := f.reconcile.AutoDiscoverConnections(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Created)

	require.NoError(t, f.mappings.Delete(ctx, m.ID))

	conns, err := f.reconcile.ListConnections(ctx)
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	a, err := f.store.ListStaging(ctx, models.SideA, m.ID)
	require.NoError(t, err)
	assert.Len(t, a, 3)
	b, err := f.store.ListStaging(ctx, models.SideB, m.ID)
	require.NoError(t, err)
	assert.Len(t, b, 1)

	rows, err := f.store.Inventory(models.SideA).List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, rec := range rows {
		assert.NotNil(t, rec.Peer().Department, "row %d lost its department link", rec.RecordID())
	}
}
