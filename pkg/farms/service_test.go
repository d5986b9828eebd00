package farms

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/validation"
)

type memoryStore struct {
	farms map[uuid.UUID]models.Farm
}

func (m *memoryStore) Create(ctx context.Context, farm models.Farm) (models.Farm, error) {
	farm.ID = uuid.New()
	m.farms[farm.ID] = farm
	return farm, nil
}

func (m *memoryStore) Get(ctx context.Context, id uuid.UUID) (models.Farm, error) {
	farm, ok := m.farms[id]
	if !ok {
		return models.Farm{}, ErrFarmNotFound
	}
	return farm, nil
}

func (m *memoryStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Farm, error) {
	var out []models.Farm
	for _, f := range m.farms {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateSoil(ctx context.Context, farmID uuid.UUID, soil models.SoilData) error {
	farm, ok := m.farms[farmID]
	if !ok {
		return ErrFarmNotFound
	}
	farm.Soil = &soil
	m.farms[farmID] = farm
	return nil
}

type recordedEvent struct {
	Type string
	Data map[string]interface{}
}

type recorder struct {
	events []recordedEvent
	err    error
}

func (r *recorder) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	r.events = append(r.events, recordedEvent{Type: eventType, Data: data})
	return r.err
}

func ptr(v float64) *float64 { return &v }

func TestCreatePublishesFarmCreated(t *testing.T) {
	store := &memoryStore{farms: map[uuid.UUID]models.Farm{}}
	events := &recorder{}
	svc := NewService(store, events)
	owner := uuid.New()

	farm, err := svc.Create(context.Background(), owner, models.CreateFarmRequest{
		Name: " North plot ", Latitude: ptr(19.99), Longitude: ptr(73.79),
	})
	require.NoError(t, err)
	assert.Equal(t, "North plot", farm.Name)
	assert.Equal(t, owner, farm.OwnerID)

	require.Len(t, events.events, 1)
	ev := events.events[0]
	assert.Equal(t, models.EventFarmCreated, ev.Type)
	assert.Equal(t, farm.ID.String(), ev.Data["farm_id"])
	assert.Equal(t, 19.99, ev.Data["latitude"])
	assert.Equal(t, 73.79, ev.Data["longitude"])
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	store := &memoryStore{farms: map[uuid.UUID]models.Farm{}}
	svc := NewService(store, &recorder{err: errors.New("broker down")})

	_, err := svc.Create(context.Background(), uuid.New(), models.CreateFarmRequest{
		Name: "Plot", Latitude: ptr(1), Longitude: ptr(2),
	})
	assert.NoError(t, err)
	assert.Len(t, store.farms, 1)
}

func TestCreateValidatesCoordinates(t *testing.T) {
	svc := NewService(&memoryStore{farms: map[uuid.UUID]models.Farm{}}, nil)

	_, err := svc.Create(context.Background(), uuid.New(), models.CreateFarmRequest{
		Name: "Plot", Latitude: ptr(120), Longitude: nil,
	})
	var verrs *validation.Errors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs.Fields, 2)
}

func TestGetOwned(t *testing.T) {
	store := &memoryStore{farms: map[uuid.UUID]models.Farm{}}
	svc := NewService(store, nil)
	owner := uuid.New()
	farm, err := svc.Create(context.Background(), owner, models.CreateFarmRequest{
		Name: "Plot", Latitude: ptr(1), Longitude: ptr(2),
	})
	require.NoError(t, err)

	got, err := svc.GetOwned(context.Background(), owner, farm.ID)
	require.NoError(t, err)
	assert.Equal(t, farm.ID, got.ID)

	_, err = svc.GetOwned(context.Background(), uuid.New(), farm.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetOwned(context.Background(), owner, uuid.New())
	assert.ErrorIs(t, err, ErrFarmNotFound)

	list, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateSoil(t *testing.T) {
	store := &memoryStore{farms: map[uuid.UUID]models.Farm{}}
	svc := NewService(store, nil)
	owner := uuid.New()
	farm, err := svc.Create(context.Background(), owner, models.CreateFarmRequest{
		Name: "Plot", Latitude: ptr(1), Longitude: ptr(2),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateSoil(context.Background(), owner, farm.ID, models.SoilData{PH: ptr(6.8), Nitrogen: ptr(90)})
	require.NoError(t, err)
	require.NotNil(t, updated.Soil)
	assert.Equal(t, ManualSoilSource, updated.Soil.Source)
	assert.Equal(t, 6.8, *store.farms[farm.ID].Soil.PH)

	_, err = svc.UpdateSoil(context.Background(), owner, farm.ID, models.SoilData{PH: ptr(15)})
	var verrs *validation.Errors
	assert.True(t, errors.As(err, &verrs))

	_, err = svc.UpdateSoil(context.Background(), uuid.New(), farm.ID, models.SoilData{PH: ptr(6)})
	assert.ErrorIs(t, err, ErrForbidden)
}
