package crawl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/harvester/internal/crawl"
)

func TestOptionsDefaultsAreValid(t *testing.T) {
	assert.NoError(t, crawl.Defaults().Validate())
}

func TestOptionsValidateBounds(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*crawl.Options)
		wantPhrase string
	}{
		{"limit too low", func(o *crawl.Options) { o.Limit = 0 }, "limit"},
		{"limit too high", func(o *crawl.Options) { o.Limit = 101 }, "limit"},
		{"depth too high", func(o *crawl.Options) { o.Depth = 6 }, "depth"},
		{"depth negative", func(o *crawl.Options) { o.Depth = -1 }, "depth"},
		{"timeout too low", func(o *crawl.Options) { o.TimeoutMillis = 100 }, "timeout"},
		{"timeout too high", func(o *crawl.Options) { o.TimeoutMillis = 1000000 }, "timeout"},
		{"wait too low", func(o *crawl.Options) { o.WaitMillis = 10 }, "wait time"},
		{"wait too high", func(o *crawl.Options) { o.WaitMillis = 60000 }, "wait time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := crawl.Defaults()
			tt.mutate(&opts)

			err := opts.Validate()
			require.Error(t, err)

			var vErr *crawl.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Len(t, vErr.Violations, 1)
			assert.Contains(t, vErr.Error(), tt.wantPhrase)
		})
	}
}

func TestOptionsValidateCollectsEverything(t *testing.T) {
	err := crawl.Options{Limit: -5, Depth: 99, TimeoutMillis: 1, WaitMillis: 1}.Validate()
	require.Error(t, err)

	var vErr *crawl.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Violations, 4)
}
