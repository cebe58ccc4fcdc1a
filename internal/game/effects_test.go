package game

import (
	"encoding/json"
	"testing"

	"arena-shooter/internal/game/kinematics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectsFlashFadesOut(t *testing.T) {
	var fx Effects
	fx.AddFlash(kinematics.V3(1, 1, 1), FlashHit)
	fx.AddFlash(kinematics.V3(2, 1, 2), FlashKill)
	require.Equal(t, 2, fx.Live())

	fx.Update(0.1)
	flashes := fx.AppendSnapshot(nil)
	require.Len(t, flashes, 2)
	assert.InDelta(t, 1-0.1/hitFlashDuration, flashes[0].Alpha, 1e-9)
	assert.InDelta(t, 1-0.1/killFlashDuration, flashes[1].Alpha, 1e-9)

	fx.Update(0.1)
	assert.Equal(t, 1, fx.Live())
	flashes = fx.AppendSnapshot(flashes[:0])
	require.Len(t, flashes, 1)
	assert.Equal(t, FlashKill, flashes[0].Kind)

	fx.Update(1)
	assert.Equal(t, 0, fx.Live())
	assert.Empty(t, fx.AppendSnapshot(nil))
}

func TestEffectsFrozenWithoutTime(t *testing.T) {
	var fx Effects
	fx.AddFlash(kinematics.Vec3{}, FlashHit)
	for i := 0; i < 100; i++ {
		fx.Update(0)
	}
	assert.Equal(t, 1, fx.Live())
	assert.Equal(t, 1.0, fx.AppendSnapshot(nil)[0].Alpha)
}

func TestEffectsRingOverwritesOldest(t *testing.T) {
	var fx Effects
	for i := 0; i < MaxFlashes+8; i++ {
		fx.AddFlash(kinematics.V3(float64(i), 0, 0), FlashHit)
	}
	assert.Equal(t, MaxFlashes, fx.Live())

	flashes := fx.AppendSnapshot(nil)
	require.Len(t, flashes, MaxFlashes)
	minX := flashes[0].Position.X
	for _, f := range flashes {
		if f.Position.X < minX {
			minX = f.Position.X
		}
	}
	assert.Equal(t, 8.0, minX)
}

func TestEffectsShake(t *testing.T) {
	var fx Effects
	fx.Shake(0.1)
	assert.InDelta(t, 0.4, fx.CurrentShake().Intensity, 1e-9)

	// a weaker hit does not dampen a running shake
	fx.Shake(0.05)
	assert.InDelta(t, 0.4, fx.CurrentShake().Intensity, 1e-9)

	fx.Shake(1)
	assert.Equal(t, 1.0, fx.CurrentShake().Intensity)

	fx.Update(0.1)
	off := fx.CurrentShake().Offset
	assert.Greater(t, off.Len(), 0.0)
	assert.LessOrEqual(t, off.Len(), 1.5)

	fx.Update(shakeDuration)
	fx.Update(frame60)
	assert.Equal(t, ScreenShake{}.Intensity, fx.CurrentShake().Intensity)
	assert.Equal(t, kinematics.Vec2{}, fx.CurrentShake().Offset)
}

func TestEffectsReset(t *testing.T) {
	var fx Effects
	fx.AddFlash(kinematics.Vec3{}, FlashKill)
	fx.Shake(0.5)
	fx.Reset()
	assert.Equal(t, 0, fx.Live())
	assert.Equal(t, ScreenShake{}, fx.CurrentShake())
}

func TestFlashKindMarshalsByName(t *testing.T) {
	data, err := json.Marshal(ImpactFlash{Kind: FlashKill, Alpha: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"kill"`)
	assert.Equal(t, "hit", FlashHit.String())

	var back ImpactFlash
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, FlashKill, back.Kind)
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"boom"}`), &back))
}
