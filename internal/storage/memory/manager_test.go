package memory

import (
	"testing"

	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/storage/storagetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) interfaces.StorageManager {
		return NewManager()
	})
}
