package serving

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/farms"
	"github.com/agri-advisor/platform/pkg/market"
	"github.com/agri-advisor/platform/pkg/recommend"
)

func f(v float64) *float64 { return &v }

type stubEngine struct {
	got    recommend.Input
	result recommend.Result
	err    error
}

func (e *stubEngine) Recommend(ctx context.Context, in recommend.Input, topN int) (recommend.Result, error) {
	e.got = in
	return e.result, e.err
}

type stubFarms struct {
	farm models.Farm
}

func (s stubFarms) GetOwned(ctx context.Context, ownerID, farmID uuid.UUID) (models.Farm, error) {
	if farmID != s.farm.ID {
		return models.Farm{}, farms.ErrFarmNotFound
	}
	if ownerID != s.farm.OwnerID {
		return models.Farm{}, farms.ErrForbidden
	}
	return s.farm, nil
}

type stubWeather struct {
	days []recommend.ForecastDay
	err  error
}

func (w stubWeather) FetchForecast(ctx context.Context, lat, lon float64) ([]recommend.ForecastDay, error) {
	return w.days, w.err
}

type memoryRuns struct {
	runs  []RecommendationRun
	saved []models.SavedRecommendation
}

func (m *memoryRuns) RecordRun(ctx context.Context, run RecommendationRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryRuns) Save(ctx context.Context, req models.SaveRecommendationRequest) (models.SavedRecommendation, error) {
	rec := models.SavedRecommendation{ID: uuid.New(), FarmID: req.FarmID, RecommendationText: req.RecommendationText}
	m.saved = append(m.saved, rec)
	return rec, nil
}

func (m *memoryRuns) HistoryByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.SavedRecommendation, error) {
	return m.saved, nil
}

type recorder struct{ types []string }

func (r *recorder) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	r.types = append(r.types, eventType)
	return nil
}

type fixedAverage float64

func (a fixedAverage) AveragePrice(ctx context.Context, commodity string) (float64, bool, error) {
	return float64(a), true, nil
}

func week(pop float64) []recommend.ForecastDay {
	days := make([]recommend.ForecastDay, 7)
	for i := range days {
		days[i] = recommend.ForecastDay{Temperature: f(25), Humidity: f(60), PrecipitationProbability: pop}
	}
	return days
}

type fixture struct {
	svc    *Service
	engine *stubEngine
	runs   *memoryRuns
	events *recorder
	farm   models.Farm
}

func newFixture(soil *models.SoilData, weather stubWeather) fixture {
	farm := models.Farm{ID: uuid.New(), OwnerID: uuid.New(), Name: "Plot", Latitude: 19.99, Longitude: 73.79, Soil: soil}
	engine := &stubEngine{result: recommend.Result{
		Candidates:   []recommend.Candidate{{Label: "wheat", EstimatedProfit: 9000}, {Label: "onion", EstimatedProfit: 7000}},
		MarketPrice:  2100,
		ModelVersion: "v3",
	}}
	runs := &memoryRuns{}
	events := &recorder{}
	svc := NewService(Deps{
		Engine:   engine,
		Farms:    stubFarms{farm: farm},
		Weather:  weather,
		Prices:   market.NewResolver(fixedAverage(2100)),
		Runs:     runs,
		Producer: events,
	})
	return fixture{svc: svc, engine: engine, runs: runs, events: events, farm: farm}
}

func TestForFarm(t *testing.T) {
	fx := newFixture(&models.SoilData{PH: f(6.5), Sand: f(400)}, stubWeather{days: week(0.1)})

	resp, err := fx.svc.ForFarm(context.Background(), fx.farm.OwnerID, fx.farm.ID, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, fx.farm.ID, resp.FarmID)
	assert.Equal(t, market.PriceFromMarket, resp.PriceSource)
	assert.Equal(t, AdvisoryDry, resp.Advisory)
	assert.Equal(t, "v3", resp.ModelVersion)

	require.NotNil(t, fx.engine.got.MarketPrice)
	assert.Equal(t, 2100.0, *fx.engine.got.MarketPrice)
	assert.Equal(t, 6.5, *fx.engine.got.Soil.PH)
	assert.Equal(t, 400.0, *fx.engine.got.Soil.Sand)
	assert.Len(t, fx.engine.got.Forecast, 7)

	require.Len(t, fx.runs.runs, 1)
	assert.Equal(t, "wheat", fx.runs.runs[0].TopCrop)
	assert.Equal(t, resp.RunID, fx.runs.runs[0].ID)
	assert.Equal(t, []string{models.EventRecommendation}, fx.events.types)
}

func TestForFarmRequestedPriceWins(t *testing.T) {
	fx := newFixture(&models.SoilData{PH: f(6.5)}, stubWeather{days: week(0.9)})

	resp, err := fx.svc.ForFarm(context.Background(), fx.farm.OwnerID, fx.farm.ID, f(3000), 3)
	require.NoError(t, err)
	assert.Equal(t, market.PriceFromRequest, resp.PriceSource)
	assert.Equal(t, 3000.0, *fx.engine.got.MarketPrice)
	assert.Equal(t, AdvisoryRain, resp.Advisory)
}

func TestForFarmErrors(t *testing.T) {
	t.Run("missing soil", func(t *testing.T) {
		fx := newFixture(nil, stubWeather{days: week(0)})
		_, err := fx.svc.ForFarm(context.Background(), fx.farm.OwnerID, fx.farm.ID, nil, 0)
		assert.ErrorIs(t, err, ErrSoilDataMissing)
	})
	t.Run("other owner", func(t *testing.T) {
		fx := newFixture(&models.SoilData{PH: f(6)}, stubWeather{days: week(0)})
		_, err := fx.svc.ForFarm(context.Background(), uuid.New(), fx.farm.ID, nil, 0)
		assert.ErrorIs(t, err, farms.ErrForbidden)
	})
	t.Run("weather down", func(t *testing.T) {
		fx := newFixture(&models.SoilData{PH: f(6)}, stubWeather{err: errors.New("timeout")})
		_, err := fx.svc.ForFarm(context.Background(), fx.farm.OwnerID, fx.farm.ID, nil, 0)
		var up *UpstreamError
		require.True(t, errors.As(err, &up))
		assert.Equal(t, "openweather", up.Provider)
		assert.Empty(t, fx.runs.runs)
	})
	t.Run("engine failure is not logged", func(t *testing.T) {
		fx := newFixture(&models.SoilData{PH: f(6)}, stubWeather{days: week(0)})
		fx.engine.err = recommend.ErrConfiguration
		_, err := fx.svc.ForFarm(context.Background(), fx.farm.OwnerID, fx.farm.ID, nil, 0)
		assert.ErrorIs(t, err, recommend.ErrConfiguration)
		assert.Empty(t, fx.runs.runs)
		assert.Empty(t, fx.events.types)
	})
}

func TestEvaluate(t *testing.T) {
	fx := newFixture(nil, stubWeather{})
	in := recommend.Input{Soil: recommend.Soil{PH: f(7)}, Forecast: week(0.7)[:2]}

	resp, err := fx.svc.Evaluate(context.Background(), uuid.New(), in, 0)
	require.NoError(t, err)
	assert.Equal(t, market.PriceFromDefault, resp.PriceSource)
	assert.Equal(t, AdvisoryRain, resp.Advisory)
	require.Len(t, fx.runs.runs, 1)
	assert.Nil(t, fx.runs.runs[0].FarmID)
}

func TestSaveAndHistory(t *testing.T) {
	fx := newFixture(nil, stubWeather{})
	owner := fx.farm.OwnerID

	_, err := fx.svc.Save(context.Background(), owner, models.SaveRecommendationRequest{FarmID: fx.farm.ID, RecommendationText: "Plant wheat"})
	require.NoError(t, err)

	_, err = fx.svc.Save(context.Background(), uuid.New(), models.SaveRecommendationRequest{FarmID: fx.farm.ID, RecommendationText: "Plant wheat"})
	assert.ErrorIs(t, err, ErrForbidden)

	history, err := fx.svc.History(context.Background(), owner, owner)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = fx.svc.History(context.Background(), owner, uuid.New())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAdvisory(t *testing.T) {
	days := week(0)
	assert.Equal(t, AdvisoryDry, Advisory(days))

	days[3].PrecipitationProbability = 0.95
	assert.Equal(t, AdvisoryDry, Advisory(days), "only the first three days count")

	days[2].PrecipitationProbability = 0.61
	assert.Equal(t, AdvisoryRain, Advisory(days))

	days[2].PrecipitationProbability = 0.6
	assert.Equal(t, AdvisoryDry, Advisory(days[:3]), "threshold is exclusive")

	assert.Equal(t, AdvisoryNoData, Advisory(nil))
}
