package main

import (
	"go.uber.org/zap"

	"github.com/Julianrussmeyer/flower/pkg/typing"
)

// demoClient is a stand-in Client that reports a single one-byte tensor and
// fixed metrics. Useful for exercising a coordinator end to end.
type demoClient struct {
	log *zap.Logger
}

func (d demoClient) GetParameters(_ typing.GetParametersIns) (typing.GetParametersRes, error) {
	d.log.Info("get_parameters")
	return typing.GetParametersRes{
		Status:     typing.Status{Code: typing.CodeOK},
		Parameters: typing.Parameters{Tensors: [][]byte{{1}}},
	}, nil
}

func (d demoClient) GetProperties(_ typing.GetPropertiesIns) (typing.GetPropertiesRes, error) {
	d.log.Info("get_properties")
	return typing.GetPropertiesRes{
		Status: typing.Status{Code: typing.CodeOK},
	}, nil
}

func (d demoClient) Fit(_ typing.FitIns) (typing.FitRes, error) {
	d.log.Info("fit")
	return typing.FitRes{
		Status:      typing.Status{Code: typing.CodeOK},
		Parameters:  typing.Parameters{Tensors: [][]byte{{1}}},
		NumExamples: 1,
	}, nil
}

func (d demoClient) Evaluate(_ typing.EvaluateIns) (typing.EvaluateRes, error) {
	d.log.Info("evaluate")
	return typing.EvaluateRes{
		Status:      typing.Status{Code: typing.CodeOK},
		Loss:        1.0,
		NumExamples: 1,
	}, nil
}
