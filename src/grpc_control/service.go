package grpc_control

import (
	"context"
	"encoding/json"

	"series-canon/src/config"
	datasource "series-canon/src/data_source"
	"series-canon/src/helpers"
	"series-canon/src/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements ControlServer on top of the source manager.
type ControlService struct {
	Config     *config.Config
	DataSource *datasource.MultiSourceManager
	Logger     *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(cfg *config.Config, ds *datasource.MultiSourceManager, log *logger.Logger) *ControlService {
	return &ControlService{
		Config:     cfg,
		DataSource: ds,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) Health(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{
		"status":  "ok",
		"name":    s.Config.Name,
		"sources": s.DataSource.SourceNames(),
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSources(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	var sources []interface{}
	for _, name := range s.DataSource.SourceNames() {
		_, desc, err := s.DataSource.GetSource(name)
		if err != nil {
			continue
		}
		sources = append(sources, desc)
	}
	return toStruct(map[string]interface{}{"sources": sources})
}

// -----------------------------------------------------------------------------

func (s *ControlService) TriggerRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.GetFields()["source"].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "source is required")
	}
	if _, _, err := s.DataSource.GetSource(name); err != nil {
		return nil, status.Errorf(codes.NotFound, "source %s not found", name)
	}

	s.Logger.Info("gRPC: TriggerRun for %s", name)
	reports, err := s.DataSource.RunSource(ctx, name)
	if err != nil {
		s.Logger.Error("gRPC: TriggerRun %s failed: %v", name, err)
		if helpers.IsConfigurationError(err) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	return toStruct(map[string]interface{}{
		"source":  name,
		"runs":    len(reports),
		"reports": reports,
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) LatestRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	latest := s.DataSource.LatestReports()

	if name := req.GetFields()["source"].GetStringValue(); name != "" {
		report, ok := latest[name]
		if !ok {
			return nil, status.Errorf(codes.NotFound, "no run for source %s", name)
		}
		return toStruct(map[string]interface{}{name: report})
	}
	return toStruct(latest)
}

// -----------------------------------------------------------------------------

// toStruct converts any JSON-serialisable value to a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
