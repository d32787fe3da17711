package http_server

import (
	"errors"
	"net/http"

	"github.com/danthegoodman1/marksplit/part"
	"github.com/danthegoodman1/marksplit/planner"
	"github.com/danthegoodman1/marksplit/utils"
)

type (
	CreatePartReqBody struct {
		// Generated when empty
		ID string `json:"id" validate:"omitempty,max=128,excludesall=/"`
		// The partition path, ex: `y=2023/m=01`
		Partition string `json:"partition" validate:"max=1024"`
		RowCount  int64  `json:"row_count" validate:"gte=0"`
		// Rows per mark, defaults to the server granularity
		Granularity *uint64 `json:"granularity" validate:"omitempty,min=1"`
	}
)

func (s *HTTPServer) ListPartsHandler(c *CustomContext) error {
	source := c.QueryParam("source")
	if source == "" {
		return c.String(http.StatusBadRequest, "missing source")
	}

	parts, err := s.Planner.ListParts(c.Request().Context(), source, c.Param("table"))
	if errors.Is(err, planner.ErrUnknownSource) {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return c.InternalError(err, "error listing parts")
	}

	return c.JSON(http.StatusOK, utils.ArrayOrEmpty(parts))
}

func (s *HTTPServer) CreatePartHandler(c *CustomContext) error {
	if s.MetaStore == nil {
		return c.String(http.StatusNotImplemented, "no metastore configured")
	}

	var reqBody CreatePartReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	granularity := utils.Deref(reqBody.Granularity, s.Planner.Defaults.Granularity)
	created, err := s.MetaStore.CreatePart(c.Request().Context(), part.Part{
		ID:        reqBody.ID,
		Table:     c.Param("table"),
		Partition: reqBody.Partition,
		Alive:     true,
		RowCount:  reqBody.RowCount,
		Marks:     part.MarksForRows(reqBody.RowCount, granularity),
	})
	if err != nil {
		return c.InternalError(err, "error creating part")
	}

	return c.JSON(http.StatusCreated, created)
}
