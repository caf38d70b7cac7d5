package scenes

import "ark/pkg/models"

// NewRegistry builds the fixed-order analyzer registry covering the full
// 11-tag closed set, registered in the same domain order (GPU, NPU,
// network, storage, process) original_source's SceneIdentifier uses.
func NewRegistry() *Registry {
	r := &Registry{}
	r.register(models.SceneGpuOom, analyzeGpuOom)
	r.register(models.SceneGpuUtilLow, analyzeGpuUtilLow)
	r.register(models.SceneGpuError, analyzeGpuError)
	r.register(models.SceneNpuSubhealth, analyzeNpuSubhealth)
	r.register(models.SceneNetworkStall, analyzeNetworkStall)
	r.register(models.SceneNetworkDrop, analyzeNetworkDrop)
	r.register(models.SceneStorageIoError, analyzeStorageIoError)
	r.register(models.SceneStorageSlow, analyzeStorageSlow)
	r.register(models.SceneProcessBlocked, analyzeCheckpointTimeout)
	r.register(models.SceneProcessBlocked, analyzeProcessBlocked)
	r.register(models.SceneProcessCrash, analyzeProcessCrash)
	r.register(models.SceneWorkloadStalled, analyzeWorkloadStalled)
	return r
}
