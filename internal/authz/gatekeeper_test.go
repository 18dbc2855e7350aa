package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"dispatch-system/internal/entities"
	"dispatch-system/pkg/constants"
	"dispatch-system/pkg/middleware"
)

func TestGatekeeper_RolesAndScope(t *testing.T) {
	g := NewGatekeeper()
	d := &entities.Dispatch{ID: "d1", Technicians: []entities.TechnicianAssignment{{TechnicianID: "t1"}}}

	assert.True(t, g.Can("a", constants.RoleAdmin, CostsApprove, nil))
	assert.True(t, g.Can("u", constants.RoleDispatcher, DispatchesAssign, d))
	assert.False(t, g.Can("u", constants.RoleDispatcher, CostsApprove, nil))

	assert.True(t, g.Can("t1", constants.RoleTechnician, DispatchesWork, d))
	assert.False(t, g.Can("t2", constants.RoleTechnician, DispatchesWork, d))
	assert.False(t, g.Can("t1", constants.RoleTechnician, DispatchesCancel, d))

	assert.True(t, g.Can("b", constants.RoleApprover, LeavesApprove, nil))
	assert.False(t, g.Can("x", "guest", DispatchesView, nil))
}

func TestGatekeeper_RequireMiddleware(t *testing.T) {
	e := echo.New()
	g := NewGatekeeper()
	handler := g.Require(CostsApprove)(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	run := func(actorID, role string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if actorID != "" {
			req = req.WithContext(middleware.WithActor(req.Context(), actorID, role))
		}
		rec := httptest.NewRecorder()
		_ = handler(e.NewContext(req, rec))
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, run("b", constants.RoleApprover))
	assert.Equal(t, http.StatusForbidden, run("t1", constants.RoleTechnician))
	assert.Equal(t, http.StatusUnauthorized, run("", ""))
}
