package http_server

import (
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog"

	"github.com/danthegoodman1/marksplit/planner"
	"github.com/danthegoodman1/marksplit/splitter"
)

// isBadPlanRequest reports errors caused by what the client sent
func isBadPlanRequest(err error) bool {
	return errors.Is(err, planner.ErrNoInput) ||
		errors.Is(err, planner.ErrUnknownSource) ||
		errors.Is(err, planner.ErrInvalidRequest) ||
		errors.Is(err, splitter.ErrInvalidParameters)
}

func (s *HTTPServer) PlanHandler(c *CustomContext) error {
	var reqBody planner.PlanRequest
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	plan, err := s.Planner.Plan(c.Request().Context(), reqBody)
	if isBadPlanRequest(err) {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return c.InternalError(err, "error planning")
	}

	zerolog.Ctx(c.Request().Context()).Debug().Str("planID", plan.ID).Int("segments", len(plan.Segments)).Msg("planned")
	return c.JSON(http.StatusOK, plan)
}

func (s *HTTPServer) GetPlanHandler(c *CustomContext) error {
	plan, err := s.Planner.LoadPlan(c.Request().Context(), c.Param("table"), c.Param("planID"))
	if errors.Is(err, planner.ErrNoArchiver) {
		return c.String(http.StatusNotImplemented, err.Error())
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
		return c.String(http.StatusNotFound, "plan not found")
	}
	if err != nil {
		return c.InternalError(err, "error loading plan")
	}

	return c.JSON(http.StatusOK, plan)
}
