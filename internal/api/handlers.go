package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
	redisclient "github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/redis"
)

func createAppointmentHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		in, err := req.toInput(loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		actor := actorFrom(r)

		switch {
		case in.Recurrence != nil:
			group, results, err := svc.CreateRecurring(r.Context(), actor, in)
			if err != nil {
				handleAppointmentError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toBatchResponse(&group, results))

		case len(in.Dates) > 0:
			results, err := svc.CreateMultiDate(r.Context(), actor, in)
			if err != nil {
				handleAppointmentError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toBatchResponse(nil, results))

		default:
			appt, err := svc.Create(r.Context(), actor, in)
			if err != nil {
				handleAppointmentError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
		}
	}
}

func toBatchResponse(group *uuid.UUID, results []appointment.BatchResult) BatchCreateResponse {
	resp := BatchCreateResponse{RecurringGroupID: group}
	for _, res := range results {
		entry := BatchEntryResponse{StartTime: res.Start}
		if res.Err != nil {
			resp.Failed++
			entry.Error = toErrorResponse(res.Err)
		} else {
			resp.Created++
			entry.Appointment = toAppointmentResponse(res.Appointment)
		}
		resp.Results = append(resp.Results, entry)
	}
	return resp
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fromStr := r.URL.Query().Get("from")
		toStr := r.URL.Query().Get("to")
		if fromStr == "" || toStr == "" {
			writeError(w, http.StatusBadRequest, "missing_range", "from and to query parameters are required")
			return
		}
		from, err := parseDate(fromStr, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", err.Error())
			return
		}
		to, err := parseDate(toStr, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", err.Error())
			return
		}
		// to is inclusive: extend to the end of that day.
		to = to.AddDate(0, 0, 1)

		appts, err := svc.Agenda(r.Context(), from, to)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		out := make([]*AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			out = append(out, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func updateAppointmentHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patch, err := req.toPatch(loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		appt, err := svc.Update(r.Context(), actorFrom(r), id, patch)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func (req *UpdateAppointmentRequest) toPatch(loc *time.Location) (*appointment.UpdateInput, error) {
	patch := &appointment.UpdateInput{
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientPhone:   req.ClientPhone,
		ClientCompany: req.ClientCompany,
		Participants:  toParticipants(req.Participants),
	}
	if req.StartTime != nil {
		t, err := parseTime(*req.StartTime, loc)
		if err != nil {
			return nil, err
		}
		patch.StartTime = &t
	}
	if req.EndTime != nil {
		t, err := parseTime(*req.EndTime, loc)
		if err != nil {
			return nil, err
		}
		patch.EndTime = &t
	}
	if req.Type != nil {
		typ := appointment.Type(*req.Type)
		patch.Type = &typ
	}
	return patch, nil
}

type transition func(r *http.Request, id uuid.UUID) (*appointment.Appointment, error)

func transitionHandler(fn transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := fn(r, id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelSeriesHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelSeriesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		groupID, err := uuid.Parse(req.RecurringGroupID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_group_id", "recurring_group_id must be a valid UUID")
			return
		}

		var apptID *uuid.UUID
		if req.AppointmentID != nil {
			id, err := uuid.Parse(*req.AppointmentID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
			apptID = &id
		}

		var from time.Time
		if req.FromDate != nil {
			from, err = parseDate(*req.FromDate, loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from_date", err.Error())
				return
			}
		}

		count, err := svc.CancelSeries(r.Context(), groupID, appointment.CancelScope(req.CancelType), apptID, from)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CancelSeriesResponse{
			RecurringGroupID: groupID,
			CancelType:       req.CancelType,
			CancelledCount:   count,
		})
	}
}

func availabilityHandler(svc *appointment.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dateStr := r.URL.Query().Get("date")
		if dateStr == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}
		day, err := parseDate(dateStr, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		var step time.Duration
		if s := r.URL.Query().Get("step"); s != "" {
			step, err = time.ParseDuration(s)
			if err != nil || step <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_step", "step must be a positive duration like 30m")
				return
			}
		}

		slots, err := svc.Availability(r.Context(), day, step)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := AvailabilityResponse{Date: dateStr, Slots: make([]SlotResponse, 0, len(slots))}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, SlotResponse{Start: s.Start, End: s.End, Available: s.Available})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Error mapping

func toErrorResponse(err error) *ErrorResponse {
	var verr *appointment.ValidationError
	var cerr *appointment.ConflictError

	switch {
	case errors.As(err, &verr):
		return &ErrorResponse{Error: "validation_failed", Details: verr.Error(), FieldErrors: verr.FieldErrors}
	case errors.As(err, &cerr):
		return &ErrorResponse{
			Error:   "appointment_conflict",
			Details: cerr.Error(),
			Conflict: &ConflictDetail{
				ID:        cerr.ConflictingID,
				Title:     cerr.ConflictingTitle,
				StartTime: cerr.ConflictingStart,
				EndTime:   cerr.ConflictingEnd,
				Status:    string(cerr.ConflictingState),
			},
		}
	default:
		return &ErrorResponse{Error: "internal_error", Details: err.Error()}
	}
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	var verr *appointment.ValidationError
	var cerr *appointment.ConflictError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, toErrorResponse(err))
	case errors.As(err, &cerr):
		// Conflicts are a 400 with the conflicting appointment embedded,
		// so clients can show the blocker and offer another slot.
		writeJSON(w, http.StatusBadRequest, toErrorResponse(err))
	case errors.Is(err, appointment.ErrForbidden):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrSeriesNotFound):
		writeError(w, http.StatusNotFound, "series_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusBadRequest, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrDayBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "day_being_booked", "the day is being booked by another request, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
