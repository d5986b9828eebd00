package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureColumns = []string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall", "label_rice", "label_maize"}

func fixtureFiles() map[string]string {
	return map[string]string{
		"crop_recommender.json": `{
			"classes": ["rice", "maize", "chickpea"],
			"feature_names": ["N", "P", "K", "temperature", "humidity", "ph", "rainfall"],
			"weights": [
				{"bias": 0.1, "coefficients": [0.1, 0, 0, 0, 0.2, 0, 0.3]},
				{"bias": 0.0, "coefficients": [0, 0.1, 0, 0.2, 0, 0, 0]},
				{"bias": -0.1, "coefficients": [0, 0, 0.1, 0, 0, 0.2, -0.3]}
			]
		}`,
		"crop_recommender_scaler.json": `{"mean": [0,0,0,0,0,0,0], "scale": [1,1,1,1,1,1,1]}`,
		"yield_forecaster.json": `{
			"feature_names": ["N", "P", "K", "temperature", "humidity", "ph", "rainfall", "label_rice", "label_maize"],
			"bias": 2.0,
			"coefficients": [0, 0, 0, 0.01, 0, 0, 0.001, 1.5, 0.5]
		}`,
		"yield_forecaster_scaler.json":  `{"mean": [0,0,0,0,0,0,0,0,0], "scale": [1,1,1,1,1,1,1,1,1]}`,
		"yield_forecaster_columns.json": `["N", "P", "K", "temperature", "humidity", "ph", "rainfall", "label_rice", "label_maize"]`,
		"sustainability_scores.csv":     "label,sustainability_score\nrice,6.5\nmaize,7\nchickpea,8.25\n",
		"cost_of_cultivation.json":      `{"rice": 42000, "maize": 30000}`,
	}
}

func writeFixture(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestLoadDefaultLayout(t *testing.T) {
	dir := writeFixture(t, fixtureFiles())

	b, err := Load(dir, LoadOptions{})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, []string{"rice", "maize", "chickpea"}, b.Classes())
	assert.Equal(t, fixtureColumns, b.Schema().Columns())
	assert.Equal(t, HashColumns(fixtureColumns), b.Schema().Hash())

	score, ok := b.Sustainability("chickpea")
	assert.True(t, ok)
	assert.Equal(t, 8.25, score)

	_, ok = b.CultivationCost("chickpea")
	assert.False(t, ok)
	assert.Equal(t, []string{"chickpea"}, b.MissingCost())
	assert.Empty(t, b.MissingSustainability())
}

func TestLoadMissingFile(t *testing.T) {
	files := fixtureFiles()
	delete(files, "yield_forecaster.json")
	dir := writeFixture(t, files)

	_, err := Load(dir, LoadOptions{})
	require.Error(t, err)
	assert.True(t, IsLoadError(err))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ArtifactRegressor, le.Artifact)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsUncoveredLabel(t *testing.T) {
	files := fixtureFiles()
	files["sustainability_scores.csv"] = "label,sustainability_score\nrice,6.5\nmaize,7\n"
	dir := writeFixture(t, files)

	_, err := Load(dir, LoadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLabelCoverage)
	assert.Contains(t, err.Error(), "chickpea")
}

func TestLoadRejectsScalerWidthMismatch(t *testing.T) {
	files := fixtureFiles()
	files["yield_forecaster_scaler.json"] = `{"mean": [0,0,0], "scale": [1,1,1]}`
	dir := writeFixture(t, files)

	_, err := Load(dir, LoadOptions{})
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ArtifactRegressorScaler, le.Artifact)
}

func TestLoadRejectsReorderedRegressorColumns(t *testing.T) {
	files := fixtureFiles()
	files["yield_forecaster_columns.json"] = `{"version": "v2", "columns": ["P", "N", "K", "temperature", "humidity", "ph", "rainfall", "label_rice", "label_maize"]}`
	dir := writeFixture(t, files)

	_, err := Load(dir, LoadOptions{})
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ArtifactRegressor, le.Artifact)
}

func TestLoadRejectsDuplicateColumns(t *testing.T) {
	files := fixtureFiles()
	files["yield_forecaster_columns.json"] = `["N", "N"]`
	dir := writeFixture(t, files)

	_, err := Load(dir, LoadOptions{})
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ArtifactRegressorColumns, le.Artifact)
}

func TestLoadManifestHashCheck(t *testing.T) {
	files := fixtureFiles()
	files[ManifestFile] = "version: \"2024.1\"\nregressor_columns:\n  version: v1\n  sha256: " + HashColumns(fixtureColumns) + "\n"
	dir := writeFixture(t, files)

	b, err := Load(dir, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2024.1", b.Version())
	assert.Equal(t, "v1", b.Schema().Version())

	files[ManifestFile] = "regressor_columns:\n  sha256: deadbeef\n"
	dir = writeFixture(t, files)
	_, err = Load(dir, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match manifest")
}

func TestLoadManifestRenamesFiles(t *testing.T) {
	files := fixtureFiles()
	files["scores.csv"] = files["sustainability_scores.csv"]
	delete(files, "sustainability_scores.csv")
	files[ManifestFile] = "sustainability:\n  file: scores.csv\n"
	dir := writeFixture(t, files)

	_, err := Load(dir, LoadOptions{})
	require.NoError(t, err)
}

func TestLoadForestRegressor(t *testing.T) {
	files := fixtureFiles()
	files[ManifestFile] = "regressor:\n  format: forest\n"
	files["yield_forecaster.json"] = `{
		"n_features": 9,
		"trees": [{"nodes": [
			{"feature": 7, "threshold": 0.5, "left": 1, "right": 2},
			{"feature": -1, "left": -1, "right": -1, "value": [2.0]},
			{"feature": -1, "left": -1, "right": -1, "value": [4.0]}
		]}]
	}`
	dir := writeFixture(t, files)

	b, err := Load(dir, LoadOptions{})
	require.NoError(t, err)

	row := make([]float64, 9)
	row[7] = 1
	y, err := b.Regressor().Predict(row)
	require.NoError(t, err)
	assert.Equal(t, 4.0, y)
}

func TestLoadUnknownFormat(t *testing.T) {
	files := fixtureFiles()
	files[ManifestFile] = "classifier:\n  format: xgboost\n"
	dir := writeFixture(t, files)

	_, err := Load(dir, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestParseSustainability(t *testing.T) {
	scores, err := parseSustainability(strings.NewReader("\ufefflabel,sustainability_score\n rice , 6\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"rice": 6}, scores)

	cases := map[string]string{
		"missing column": "label,score\nrice,6\n",
		"out of range":   "label,sustainability_score\nrice,11\n",
		"not a number":   "label,sustainability_score\nrice,high\n",
		"duplicate":      "label,sustainability_score\nrice,6\nrice,7\n",
		"empty":          "",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseSustainability(strings.NewReader(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsNegativeCost(t *testing.T) {
	files := fixtureFiles()
	files["cost_of_cultivation.json"] = `{"rice": -1}`
	dir := writeFixture(t, files)

	_, err := Load(dir, LoadOptions{})
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ArtifactCultivationCost, le.Artifact)
}
