package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"chats-be/internal/http/middleware"
	"chats-be/internal/permissions"
)

func init() {
	// report validation failures under the JSON field name
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
)

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

func invalidPage(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
}

func serverError(c *gin.Context, log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
}

// fieldErrors maps a JSON field to its validation messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) { f[field] = append(f[field], msg) }

// bindJSON decodes the body into dst. An empty body decodes as {} so that
// optional payloads work without one. It writes the 400 itself on failure.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(dst)
	}
	if err == nil {
		return true
	}
	badRequest(c, err)
	return false
}

func badRequest(c *gin.Context, err error) {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &verrs):
		out := fieldErrors{}
		for _, fe := range verrs {
			out.add(fe.Field(), validationMessage(fe))
		}
		c.JSON(http.StatusBadRequest, out)
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "non_field_errors"
		}
		c.JSON(http.StatusBadRequest, fieldErrors{field: {"Incorrect type."}})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error - " + err.Error()})
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	}
	return "Invalid value."
}

// text validates a writable text field. required applies to full updates and creates.
func text(errs fieldErrors, field string, v *string, required bool) string {
	if v == nil {
		if required {
			errs.add(field, msgRequired)
		}
		return ""
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		errs.add(field, msgBlank)
	}
	return s
}

func idParam(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// objectAllowed runs the object phase of perm and writes the 403 on denial.
func objectAllowed(c *gin.Context, perm permissions.Permission, obj any) bool {
	r := permissions.Request{User: middleware.CurrentUser(c), Method: c.Request.Method}
	if perm.HasObjectPermission(c.Request.Context(), r, obj) {
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{"detail": permissions.DeniedMessage})
	return false
}

func invalidPK(id uint) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

// primaryKey reads a related-object id sent as a JSON number or numeric
// string. null and "" count as absent; problem is the field error otherwise.
func primaryKey(v any) (id uint, present bool, problem string) {
	var raw string
	switch x := v.(type) {
	case nil:
		return 0, false, ""
	case float64:
		if x != math.Trunc(x) {
			return 0, true, incorrectPK("float")
		}
		raw = strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		raw = strings.TrimSpace(x)
		if raw == "" {
			return 0, false, ""
		}
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return 0, true, incorrectPK("str")
		}
	case bool:
		return 0, true, incorrectPK("bool")
	case []any:
		return 0, true, incorrectPK("list")
	default:
		return 0, true, incorrectPK("dict")
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n > math.MaxUint32 {
		return 0, true, fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", raw)
	}
	return uint(n), true, ""
}

func incorrectPK(kind string) string {
	return "Incorrect type. Expected pk value, received " + kind + "."
}
