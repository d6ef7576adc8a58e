package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rosettago/internal/app"
	"github.com/vk/rosettago/internal/cost"
)

const scenarioCatalog = `
kind "path" {}
kind "spectrum" {}
kind "feature" {}

operator "fft" {
  handler   = "OnEvalFFT"
  cost      = { cost = 10 }
  stability = 1

  input {
    kind   = "path"
    shape  = ["t"]
    metric = "euclidean"
  }
  output {
    kind   = "spectrum"
    shape  = ["t"]
    metric = "l2"
  }
}

operator "scattering1d" {
  handler        = "OnEvalScattering1D"
  differentiable = true
  cost           = { cost = 5 }
  stability      = 1
  params         = { scale = 1 }

  input {
    kind   = "path"
    shape  = ["t"]
    metric = "euclidean"
  }
  output {
    kind   = "feature"
    shape  = ["16"]
    metric = "l2"
  }
}

operator "spec_pool" {
  handler        = "OnEvalSpecPool"
  differentiable = true
  cost           = { cost = 3 }
  stability      = 1
  params         = { gain = 1 }

  input {
    kind   = "spectrum"
    shape  = ["t"]
    metric = "l2"
  }
  output {
    kind   = "feature"
    shape  = ["16"]
    metric = "l2"
  }
}

operator "spec_cast" {
  handler   = "OnEvalSpecCast"
  adapter   = true
  cost      = { cost = 1 }
  stability = 1

  input {
    kind   = "spectrum"
    shape  = ["t"]
    metric = "l2"
  }
  output {
    kind   = "feature"
    shape  = ["16"]
    metric = "l2"
  }
}
`

func writeScenarioCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.hcl"), []byte(scenarioCatalog), 0o644))
	return dir
}

func scenarioConfig(t *testing.T, dir string) *app.Config {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		CatalogPath: dir,
		Input:       "path[64]/euclidean",
		Output:      "feature[16]/l2",
		Depth:       2,
		Seed:        1,
		Budget:      "cost=20",
		Samples:     8,
		Steps:       4,
		Workers:     2,
		LogLevel:    "debug",
		LogFormat:   "text",
	})
	require.NoError(t, err)
	return cfg
}

func TestNewAppLoadsAndFreezesCatalog(t *testing.T) {
	dir := writeScenarioCatalog(t)
	buf := &app.SafeBuffer{}
	a := app.NewApp(buf, scenarioConfig(t, dir))

	assert.True(t, a.Catalog().Frozen())
	assert.Equal(t, 4, a.Catalog().Len())
}

func TestNewAppPanicsOnMissingHandler(t *testing.T) {
	dir := t.TempDir()
	bad := `
kind "path" {}
kind "feature" {}
operator "ghost" {
  handler = "OnEvalNothing"
  input {
    kind   = "path"
    shape  = ["t"]
    metric = "euclidean"
  }
  output {
    kind   = "feature"
    shape  = ["16"]
    metric = "l2"
  }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.hcl"), []byte(bad), 0o644))

	cfg := scenarioConfig(t, dir)
	assert.Panics(t, func() {
		app.NewApp(&app.SafeBuffer{}, cfg)
	})
}

func TestRunPrintsDecodedGraphWithinBudget(t *testing.T) {
	dir := writeScenarioCatalog(t)
	buf := &app.SafeBuffer{}
	a := app.NewApp(buf, scenarioConfig(t, dir))

	require.NoError(t, a.Run(context.Background(), scenarioConfig(t, dir)))

	out := buf.String()
	assert.Contains(t, out, "run ")
	assert.Contains(t, out, "input x")
	assert.Contains(t, out, "(output)")
	assert.Contains(t, out, "budget cost:")
}

func TestRunSurfacesInfeasibleBudget(t *testing.T) {
	dir := writeScenarioCatalog(t)
	cfg := scenarioConfig(t, dir)
	cfg.Budget = "cost=1"

	buf := &app.SafeBuffer{}
	a := app.NewApp(buf, cfg)

	err := a.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget")
	assert.Contains(t, buf.String(), "input x", "the best-effort graph is still printed")
}

func TestParseBudget(t *testing.T) {
	b, err := app.ParseBudget("cost=20, memory=4")
	require.NoError(t, err)
	assert.Equal(t, cost.Budget{"cost": 20, "memory": 4}, b)

	b, err = app.ParseBudget("")
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = app.ParseBudget("cost")
	assert.Error(t, err)
}
