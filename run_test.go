package beans

import (
	"context"
	"testing"
	"time"

	"github.com/gocrud/beans/core"
	"github.com/gocrud/beans/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct{}

func (*greeter) Greet() string { return "hello" }

func TestNew(t *testing.T) {
	ac, err := New(core.WithLogger(logging.NewNop()), core.WithBean("greeter", &greeter{}))
	require.NoError(t, err)
	require.NoError(t, ac.Refresh(context.Background()))
	defer ac.Close(context.Background())

	g, err := core.Bean[*greeter](ac, "greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello", g.Greet())
}

func TestRunContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := RunContext(ctx, core.WithLogger(logging.NewNop()), core.WithShutdownTimeout(time.Second))
	assert.NoError(t, err)
}
