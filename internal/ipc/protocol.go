package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"github.com/godbus/dbus/v5"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/report"
	"github.com/SoarinFerret/BreakWarden/internal/session"
	"github.com/SoarinFerret/BreakWarden/internal/state"
)

const (
	ObjectPath    = "/io/github/soarinferret/breakwarden"
	InterfaceName = "io.github.soarinferret.breakwarden.Manager"
	ServiceName   = "io.github.soarinferret.breakwarden"

	ErrorUnauthorized = InterfaceName + ".Unauthorized"
	ErrorNotFound     = InterfaceName + ".NotFound"
	ErrorInvalid      = InterfaceName + ".InvalidArgument"
)

// Firer runs a reset job on demand.
type Firer interface {
	Fire(ctx context.Context, kind report.Kind) (int, error)
}

// UserStatus is the JSON document returned by GetUserStatus.
type UserStatus struct {
	TenantID          int64      `json:"tenant_id"`
	UserID            int64      `json:"user_id"`
	Name              string     `json:"name"`
	Working           bool       `json:"working"`
	WorkStart         *time.Time `json:"work_start,omitempty"`
	OpenActivity      string     `json:"open_activity,omitempty"`
	OpenActivitySince *time.Time `json:"open_activity_since,omitempty"`
	Activities        int        `json:"activities"`
	WorkSeconds       int64      `json:"work_time_seconds"`
	ActivitySeconds   int64      `json:"activity_time_seconds"`
	PureWorkSeconds   int64      `json:"pure_work_time_seconds"`
	DailyFines        string     `json:"daily_fines"`
	MonthlyFines      string     `json:"monthly_fines"`
}

func NewUserStatus(tenantID, userID int64, rec session.Record) UserStatus {
	status := UserStatus{
		TenantID:        tenantID,
		UserID:          userID,
		Name:            rec.Name,
		Working:         rec.IsWorking(),
		Activities:      len(rec.Activities),
		WorkSeconds:     int64(rec.WorkTime / time.Second),
		ActivitySeconds: int64(rec.ActivityTime / time.Second),
		PureWorkSeconds: int64(rec.PureWorkTime / time.Second),
		DailyFines:      rec.DailyFines.String(),
		MonthlyFines:    rec.MonthlyFines.String(),
	}
	if rec.IsWorking() {
		start := rec.WorkStart
		status.WorkStart = &start
	}
	if open := rec.OpenActivity(); open != nil {
		since := open.Start
		status.OpenActivity = string(open.Kind)
		status.OpenActivitySince = &since
	}
	return status
}

// AdminService is exported on the system bus for bwctl.
type AdminService struct {
	Logger    slog.Logger
	Clock     quartz.Clock
	Registry  *state.Registry
	Generator *report.Generator
	Scheduler Firer
}

func (s *AdminService) GetStatus() (string, *dbus.Error) {
	tenants, users := s.Registry.Counts()
	return fmt.Sprintf("Service is running, %d tenants, %d users", tenants, users), nil
}

func (s *AdminService) GetReport(tenantID int64, requesterID int64) (string, *dbus.Error) {
	summary, err := s.Generator.OnDemand(tenantID, requesterID, s.Clock.Now())
	if xerrors.Is(err, report.ErrUnauthorized) {
		return "", dbus.NewError(ErrorUnauthorized, []interface{}{"Admins only"})
	}
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return summary.Text, nil
}

func (s *AdminService) GetUserStatus(tenantID int64, userID int64) (string, *dbus.Error) {
	rec, ok := s.Registry.Get(tenantID, userID)
	if !ok {
		return "", dbus.NewError(ErrorNotFound, []interface{}{
			fmt.Sprintf("no record for user %d in tenant %d", userID, tenantID),
		})
	}
	data, err := json.Marshal(NewUserStatus(tenantID, userID, rec))
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

func (s *AdminService) TriggerReset(kind string) (string, *dbus.Error) {
	k, err := report.ParseKind(kind)
	if err != nil {
		return "", dbus.NewError(ErrorInvalid, []interface{}{err.Error()})
	}

	ctx := context.Background()
	s.Logger.Info(ctx, "manual reset requested", slog.F("kind", k))
	n, err := s.Scheduler.Fire(ctx, k)
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return fmt.Sprintf("%s reset done for %d tenants", k, n), nil
}

// Serve owns the bus name and exports s until ctx is done.
func Serve(ctx context.Context, conn *dbus.Conn, s *AdminService) error {
	reply, err := conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return xerrors.Errorf("request name %s: %w", ServiceName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return xerrors.Errorf("name %s already taken", ServiceName)
	}

	if err := conn.Export(s, dbus.ObjectPath(ObjectPath), InterfaceName); err != nil {
		return xerrors.Errorf("export interface: %w", err)
	}

	<-ctx.Done()
	return nil
}
