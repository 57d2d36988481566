//go:build !windows

package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_StrategyIsSwappable(t *testing.T) {
	var calls []Kind
	d := &Dispatcher{Send: func(pgid int, kind Kind) error {
		calls = append(calls, kind)
		return nil
	}}

	require := assert.New(t)
	require.NoError(d.Dispatch(1234, KindTimeout))
	require.NoError(d.Dispatch(1234, KindForce))
	require.Equal([]Kind{KindTimeout, KindForce}, calls)
}

func TestSendPosixSignal_UnknownKindErrors(t *testing.T) {
	err := sendPosixSignal(1, Kind("bogus"))
	assert.Error(t, err)
}
