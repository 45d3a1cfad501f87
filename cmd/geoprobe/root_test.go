package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return nil, err
	}
	var v map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	return v, nil
}

func TestDistanceCmd(t *testing.T) {
	got, err := runCmd(t, "distance", "12.9716", "77.5946", "12.9746", "77.5946")
	require.NoError(t, err)

	assert.Equal(t, "334m", got["distance_label"])
	assert.Equal(t, true, got["within_radius"])
}

func TestDistanceCmd_Radius(t *testing.T) {
	got, err := runCmd(t, "distance", "--radius", "5", "12.9716", "77.5946", "13.1986", "77.7066")
	require.NoError(t, err)

	assert.Equal(t, "28km", got["distance_label"])
	assert.Equal(t, false, got["within_radius"])
}

func TestDistanceCmd_InvalidPoint(t *testing.T) {
	_, err := runCmd(t, "distance", "north", "77.5946", "12.9746", "77.5946")
	require.Error(t, err)
}

func TestSimplifyCmd(t *testing.T) {
	got, err := runCmd(t, "simplify", "8th cross btm 2nd stage")
	require.NoError(t, err)

	assert.Equal(t, true, got["fallback"])
	assert.Equal(t, "BTM 2nd Stage, Bangalore", got["simplified"])
}

func TestSimplifyCmd_NoMatch(t *testing.T) {
	got, err := runCmd(t, "simplify", "--city", "Mysore", "indiranagar")
	require.NoError(t, err)

	assert.Equal(t, false, got["fallback"])
	assert.Equal(t, "", got["simplified"])
}
