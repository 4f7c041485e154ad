package layer

import (
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/node"
)

func init() {
	dispatch.MustRegister(KindSum, nil, dispatch.Handlers{
		LogLikelihood: sumLayerLogLikelihood,
		Sample:        sumLayerSample,
		EM:            sumLayerEM,
		Marginalize:   sumLayerMarginalize,
		ToBackend:     sumLayerToBackend,
	})
	dispatch.MustRegister(KindProduct, nil, dispatch.Handlers{
		LogLikelihood: productLayerLogLikelihood,
		Sample:        productLayerSample,
		EM:            node.EMChildren,
		Marginalize:   productLayerMarginalize,
		ToBackend:     productLayerToBackend,
	})
	dispatch.MustRegister(KindPartition, nil, dispatch.Handlers{
		LogLikelihood: combinationLogLikelihood,
		Sample:        combinationSample,
		EM:            node.EMChildren,
		Marginalize:   combinationMarginalize(newPartition),
		ToBackend:     combinationToBackend(newPartition),
	})
	dispatch.MustRegister(KindHadamard, nil, dispatch.Handlers{
		LogLikelihood: combinationLogLikelihood,
		Sample:        combinationSample,
		EM:            node.EMChildren,
		Marginalize:   combinationMarginalize(newHadamard),
		ToBackend:     combinationToBackend(newHadamard),
	})
}
