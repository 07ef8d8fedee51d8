package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandLayout(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "migrate", "process"}, names)

	process, _, err := root.Find([]string{"process"})
	require.NoError(t, err)
	flag := process.Flags().Lookup("payload")
	require.NotNil(t, flag)
	assert.Equal(t, "-", flag.DefValue)
}
