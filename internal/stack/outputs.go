package stack

import (
	profilestack "github.com/profilemcp/profile-stack"
	"github.com/profilemcp/profile-stack/internal/template"
	"github.com/profilemcp/profile-stack/intrinsics"
)

// ----------------------------------------------------------------------------
// Outputs
// ----------------------------------------------------------------------------

func (s *declarer) outputs(fn, api template.Handle) {
	s.b.AddOutput(OutputFunctionArn, profilestack.Output{
		Description: "Current Lambda function version",
		Value:       fn.Attr("Arn"),
		Export:      &profilestack.Export{Name: s.cfg.ExportName(OutputFunctionArn)},
	})

	s.b.AddOutput(OutputServiceEndpoint, profilestack.Output{
		Description: "URL of the service endpoint",
		Value: intrinsics.Join{Delimiter: "", Values: []any{
			"https://",
			api.Ref(),
			".execute-api.",
			s.region(),
			".",
			intrinsics.AWS_URL_SUFFIX,
			"/" + s.cfg.API.StageName,
		}},
		Export: &profilestack.Export{Name: s.cfg.ExportName(OutputServiceEndpoint)},
	})
}
