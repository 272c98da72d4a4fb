package pulseaudio

import (
	"github.com/xaionaro-go/audiosender/pkg/audio/registry"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
)

const (
	BackendName = "pulseaudio"
	Priority    = 100
)

func init() {
	registry.RegisterRecorderFactory(BackendName, Priority, RecorderPCMPulseFactory{})
}

type RecorderPCMPulseFactory struct{}

func (RecorderPCMPulseFactory) NewRecorderPCM() (types.RecorderPCM, error) {
	return NewRecorderPCM()
}
