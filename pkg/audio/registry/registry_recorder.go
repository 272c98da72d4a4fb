package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xaionaro-go/audiosender/pkg/audio/types"
)

type RecorderPCMFactory interface {
	NewRecorderPCM() (types.RecorderPCM, error)
}

type recorderFactoryWithPriority struct {
	Name     string
	Priority int
	RecorderPCMFactory
}

var (
	recorderFactoryRegistry       = map[string]recorderFactoryWithPriority{}
	recorderFactoryRegistryLocker sync.Mutex
)

func RegisterRecorderFactory(
	name string,
	priority int,
	recorderPCMFactory RecorderPCMFactory,
) {
	recorderFactoryRegistryLocker.Lock()
	defer recorderFactoryRegistryLocker.Unlock()
	if _, ok := recorderFactoryRegistry[name]; ok {
		panic(fmt.Errorf("there is already registered a factory of RecorderPCM with name '%s'", name))
	}
	recorderFactoryRegistry[name] = recorderFactoryWithPriority{
		Name:               name,
		Priority:           priority,
		RecorderPCMFactory: recorderPCMFactory,
	}
}

// RecorderFactories returns the factories eligible for auto-selection, the
// highest priority first. A factory registered with a negative priority is
// only reachable through RecorderFactoryByName.
func RecorderFactories() []RecorderPCMFactory {
	recorderFactoryRegistryLocker.Lock()
	defer recorderFactoryRegistryLocker.Unlock()

	var factoriesWithPriorities []recorderFactoryWithPriority
	for _, factory := range recorderFactoryRegistry {
		if factory.Priority < 0 {
			continue
		}
		factoriesWithPriorities = append(factoriesWithPriorities, factory)
	}
	sort.Slice(factoriesWithPriorities, func(i, j int) bool {
		if factoriesWithPriorities[i].Priority != factoriesWithPriorities[j].Priority {
			return factoriesWithPriorities[i].Priority > factoriesWithPriorities[j].Priority
		}
		return factoriesWithPriorities[i].Name < factoriesWithPriorities[j].Name
	})

	var factories []RecorderPCMFactory
	for _, factory := range factoriesWithPriorities {
		factories = append(factories, factory.RecorderPCMFactory)
	}

	return factories
}

func RecorderFactoryByName(name string) (RecorderPCMFactory, error) {
	recorderFactoryRegistryLocker.Lock()
	defer recorderFactoryRegistryLocker.Unlock()
	factory, ok := recorderFactoryRegistry[name]
	if !ok {
		return nil, fmt.Errorf("there is no recorder backend '%s' (is it compiled in?)", name)
	}
	return factory.RecorderPCMFactory, nil
}

func RecorderFactoryNames() []string {
	recorderFactoryRegistryLocker.Lock()
	defer recorderFactoryRegistryLocker.Unlock()
	names := make([]string, 0, len(recorderFactoryRegistry))
	for name := range recorderFactoryRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
