// Package validation valida y normaliza los payloads de entrada antes de llegar a los repositorios.
// Son funciones puras: no acceden a red ni almacenamiento.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/proveedores-api/internal/application/dto"
	"github.com/jhoicas/proveedores-api/internal/domain"
	"github.com/jhoicas/proveedores-api/internal/domain/entity"
	"github.com/jhoicas/proveedores-api/internal/domain/repository"
	"github.com/jhoicas/proveedores-api/pkg/password"
	"github.com/jhoicas/proveedores-api/pkg/taxid"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Los errores se informan con el nombre JSON del campo.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("taxid", func(fl validator.FieldLevel) bool {
			_, err := taxid.Validate(fl.Field().String())
			return err == nil
		})
		// bcrypt limita la entrada en bytes, max cuenta caracteres.
		_ = validate.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= password.MaxBytes
		})
		// El almacenamiento conserva solo los dígitos del teléfono.
		_ = validate.RegisterValidation("hasdigit", func(fl validator.FieldLevel) bool {
			return strings.ContainsFunc(fl.Field().String(), unicode.IsDigit)
		})
	})
	return validate
}

// check ejecuta el validador y traduce sus errores a *domain.ValidationError.
func check(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return domain.NewValidationError("body", err.Error())
	}
	out := &domain.ValidationError{}
	for _, fe := range verrs {
		out.Add(fe.Field(), reason(fe))
	}
	return out.OrNil()
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "email":
		return "no es un email válido"
	case "min":
		return fmt.Sprintf("debe tener al menos %s caracteres", fe.Param())
	case "max":
		return fmt.Sprintf("debe tener como máximo %s caracteres", fe.Param())
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	case "bcryptlen":
		return fmt.Sprintf("debe ocupar como máximo %d bytes", password.MaxBytes)
	case "hasdigit":
		return "debe contener al menos un dígito"
	case "taxid":
		return fmt.Sprintf("CNPJ inválido: solo letras mayúsculas y dígitos, %d-%d caracteres", taxid.MinLen, taxid.MaxLen)
	default:
		return "inválido (" + fe.Tag() + ")"
	}
}

// Name recorta y normaliza a NFC, de modo que "Indústria" compuesto y descompuesto sean iguales.
func Name(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func trimPtr(p *string, f func(string) string) *string {
	if p == nil {
		return nil
	}
	v := f(*p)
	return &v
}

// ValidateSupplier valida un alta de proveedor y devuelve la entidad normalizada
// (nombre NFC, email y teléfono recortados, CNPJ en mayúsculas sin puntuación).
func ValidateSupplier(in dto.CreateSupplierRequest) (*entity.Supplier, error) {
	in.Name = Name(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := check(in); err != nil {
		return nil, err
	}
	return &entity.Supplier{
		Name:  in.Name,
		TaxID: taxid.Normalize(in.TaxID),
		Email: in.Email,
		Phone: in.Phone,
	}, nil
}

// ValidateSupplierPatch valida solo los campos presentes de una actualización.
func ValidateSupplierPatch(in dto.UpdateSupplierRequest) (repository.SupplierPatch, error) {
	in.Name = trimPtr(in.Name, Name)
	in.Email = trimPtr(in.Email, strings.TrimSpace)
	in.Phone = trimPtr(in.Phone, strings.TrimSpace)
	if err := check(in); err != nil {
		return repository.SupplierPatch{}, err
	}
	return repository.SupplierPatch{
		Name:  in.Name,
		TaxID: trimPtr(in.TaxID, taxid.Normalize),
		Email: in.Email,
		Phone: in.Phone,
	}, nil
}

// ValidateRegistration valida un registro público: rol user, cuenta activa.
func ValidateRegistration(in dto.RegisterRequest) (repository.NewUser, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := check(in); err != nil {
		return repository.NewUser{}, err
	}
	return repository.NewUser{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
		Role:     entity.RoleUser,
		Active:   true,
	}, nil
}

// ValidateUserPatch valida una actualización de usuario hecha por un admin.
func ValidateUserPatch(in dto.UpdateUserRequest) (repository.UserPatch, error) {
	in.Username = trimPtr(in.Username, strings.TrimSpace)
	in.Email = trimPtr(in.Email, strings.TrimSpace)
	in.Role = trimPtr(in.Role, strings.TrimSpace)
	if err := check(in); err != nil {
		return repository.UserPatch{}, err
	}
	return repository.UserPatch{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
		Role:     in.Role,
		Active:   in.Active,
	}, nil
}

// ValidateLogin exige usuario y contraseña no vacíos.
func ValidateLogin(in dto.LoginRequest) (dto.LoginRequest, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := check(in); err != nil {
		return dto.LoginRequest{}, err
	}
	return in, nil
}
