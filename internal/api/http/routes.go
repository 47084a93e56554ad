package httpapi

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

// ProfileHeader identifies whose preferences a request reads or writes.
const ProfileHeader = "X-Profile-ID"

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *dashboard.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return err
		}
		report, err := service.Current(c.UserContext(), q.City)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return err
		}
		report, err := service.Forecast(c.UserContext(), q.City)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	v1.Get("/weather/overview", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return err
		}
		overview, err := service.Overview(c.UserContext(), q.City)
		if err != nil {
			return err
		}
		return c.JSON(overview)
	})

	v1.Get("/cities", func(c *fiber.Ctx) error {
		cities, err := service.SearchCities(c.UserContext(), c.Query("q"))
		if err != nil {
			return err
		}
		return c.JSON(cities)
	})

	v1.Get("/geo/reverse", func(c *fiber.Ctx) error {
		q, err := parseCoordsQuery(c)
		if err != nil {
			return err
		}
		city, err := service.CityByCoords(c.UserContext(), *q.Lat, *q.Lon)
		if err != nil {
			return err
		}
		return c.JSON(city)
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		profile, err := profileID(c)
		if err != nil {
			return err
		}
		settings, err := service.Settings(c.UserContext(), profile, c.QueryBool("prefersDark", false))
		if err != nil {
			return err
		}
		return c.JSON(settings)
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		profile, err := profileID(c)
		if err != nil {
			return err
		}

		var req settingsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		prefs, err := service.UpdatePreferences(c.UserContext(), profile, req.toPatch())
		if err != nil {
			return err
		}
		return c.JSON(prefs)
	})

	v1.Post("/settings/locate", func(c *fiber.Ctx) error {
		profile, err := profileID(c)
		if err != nil {
			return err
		}

		var req coordsQuery
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		prefs, err := service.Locate(c.UserContext(), profile, *req.Lat, *req.Lon)
		if err != nil {
			return err
		}
		return c.JSON(prefs)
	})

	v1.Post("/profiles", func(c *fiber.Ctx) error {
		prefs, err := service.UpdatePreferences(c.UserContext(), uuid.NewString(), dashboard.PreferencesPatch{})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(prefs)
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...} with a
// status derived from the error kind.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx, err error) error {
		code, message := statusFor(err)
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"request_id", c.Locals("requestid"),
				"error", err,
			)
		}
		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": message,
		})
	}
}

func statusFor(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, dashboard.ErrCityNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, dashboard.ErrInvalidTheme):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, providers.ErrUnauthorized):
		return fiber.StatusBadGateway, "weather provider rejected the API key"
	case errors.Is(err, providers.ErrRateLimited), errors.Is(err, providers.ErrCircuitOpen):
		return fiber.StatusServiceUnavailable, "weather provider is temporarily unavailable"
	}
	return fiber.StatusInternalServerError, "internal server error"
}

// cityQuery holds query parameters for identifying a city.
type cityQuery struct {
	City string `validate:"required,max=100"`
}

func parseCityQuery(c *fiber.Ctx) (cityQuery, error) {
	q := cityQuery{City: strings.TrimSpace(c.Query("city"))}
	if err := validate.Struct(q); err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return q, nil
}

// coordsQuery holds a device position, from the query string or a JSON body.
type coordsQuery struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lon *float64 `json:"lon" validate:"required,longitude"`
}

func parseCoordsQuery(c *fiber.Ctx) (coordsQuery, error) {
	var q coordsQuery
	for _, p := range []struct {
		key string
		dst **float64
	}{{"lat", &q.Lat}, {"lon", &q.Lon}} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, "invalid "+p.key)
		}
		*p.dst = &v
	}
	if err := validate.Struct(q); err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return q, nil
}

// settingsRequest is the body of PUT /settings; absent fields are unchanged.
type settingsRequest struct {
	SelectedCity *string `json:"selectedCity" validate:"omitempty,min=1,max=100"`
	AutoLocation *bool   `json:"isAutoLocation"`
	Theme        *string `json:"theme" validate:"omitempty,oneof=light dark auto"`
}

func (r settingsRequest) toPatch() dashboard.PreferencesPatch {
	patch := dashboard.PreferencesPatch{
		SelectedCity: r.SelectedCity,
		AutoLocation: r.AutoLocation,
	}
	if r.Theme != nil {
		theme := dashboard.Theme(*r.Theme)
		patch.Theme = &theme
	}
	return patch
}

type profileHeader struct {
	ID string `validate:"omitempty,max=64,printascii"`
}

func profileID(c *fiber.Ctx) (string, error) {
	h := profileHeader{ID: strings.TrimSpace(c.Get(ProfileHeader))}
	if err := validate.Struct(h); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid "+ProfileHeader+" header")
	}
	return h.ID, nil
}
