package portaudio

import (
	"github.com/xaionaro-go/audiosender/pkg/audio/registry"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
)

const (
	BackendName = "portaudio"
	Priority    = 60
)

func init() {
	registry.RegisterRecorderFactory(BackendName, Priority, RecorderPCMFactory{})
}

type RecorderPCMFactory struct{}

func (RecorderPCMFactory) NewRecorderPCM() (types.RecorderPCM, error) {
	return NewRecorderPCM()
}
