package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/probtrack/internal/models"
)

func TestResolve_StructuralFields_LWW(t *testing.T) {
	op := &models.Operation{
		Type:      models.OpMarkSolved,
		EntityID:  "two-sum",
		Timestamp: 2000,
	}

	// Локальная операция новее серверной версии
	res := Resolve(op, []string{"solved", "solved_at"}, 1000)
	assert.Equal(t, ResolutionLocalWins, res)

	// Серверная версия новее
	res = Resolve(op, []string{"solved"}, 3000)
	assert.Equal(t, ResolutionRemoteWins, res)

	// При равных timestamps побеждает сервер (его запись уже применена)
	res = Resolve(op, []string{"solved"}, 2000)
	assert.Equal(t, ResolutionRemoteWins, res)
}

func TestResolve_ContentField_Manual(t *testing.T) {
	op := &models.Operation{
		Type:      models.OpUpdateDifficulty,
		EntityID:  "two-sum",
		Timestamp: 5000,
	}

	// Расхождение в notes эскалируется, даже если операция структурная
	res := Resolve(op, []string{"difficulty", "notes"}, 1000)
	assert.Equal(t, ResolutionManual, res)
}

func TestResolve_ContentOps_AlwaysManual(t *testing.T) {
	note := &models.Operation{
		Type:      models.OpAddNote,
		EntityID:  "two-sum",
		Timestamp: 9000,
	}

	// ADD_NOTE никогда не мержится автоматически, даже при победе по LWW
	res := Resolve(note, []string{"solved"}, 1)
	assert.Equal(t, ResolutionManual, res)

	settings := &models.Operation{
		Type:      models.OpUpdateSettings,
		EntityID:  "settings",
		Timestamp: 9000,
	}
	assert.Equal(t, ResolutionManual, Resolve(settings, nil, 1))
}

func TestNewerThan(t *testing.T) {
	assert.True(t, NewerThan(2, "a", 1, "z"))
	assert.False(t, NewerThan(1, "z", 2, "a"))

	// Равные timestamps - детерминированный выбор по nodeID
	assert.True(t, NewerThan(5, "node-b", 5, "node-a"))
	assert.False(t, NewerThan(5, "node-a", 5, "node-b"))
}
