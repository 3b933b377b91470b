package repository

import (
	"sync"
	"testing"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

func TestStateRepository(t *testing.T) {
	repo := NewStateRepository()

	if _, ok := repo.Get(1); ok {
		t.Fatal("Get() on empty repository reported a state")
	}

	repo.Save(1, domain.StateTemperature)
	repo.Save(2, domain.StateMemorySettings)

	if got, ok := repo.Get(1); !ok || got != domain.StateTemperature {
		t.Errorf("Get(1) = %q, %v", got, ok)
	}

	repo.Clear(1)
	if _, ok := repo.Get(1); ok {
		t.Error("Get(1) after Clear still reports a state")
	}
	if got, _ := repo.Get(2); got != domain.StateMemorySettings {
		t.Errorf("Get(2) = %q, state of another owner was touched", got)
	}
}

func TestStateRepositoryConcurrentAccess(t *testing.T) {
	repo := NewStateRepository()

	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			repo.Save(id, domain.StateSelectingSetting)
			repo.Get(id)
			repo.Clear(id)
		}(i)
	}
	wg.Wait()
}
