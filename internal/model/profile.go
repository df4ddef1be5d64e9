package model

import "time"

// Sex values accepted in Profile.Sexo.
const (
	SexMale   = "Masculino"
	SexFemale = "Femenino"
	SexOther  = "Otro"
)

// EmploymentInfo is the datosLaborales sub-document of a Profile.
type EmploymentInfo struct {
	NumEmpleado   string `json:"numEmpleado"`
	TurnoAsignado string `json:"turnoAsignado"`
	HoraEntrada   string `json:"horaEntrada"`
	HoraComida    string `json:"horaComida"`
	Puesto        string `json:"puesto"`
	Area          string `json:"area"`
	TipoContrato  string `json:"tipoContrato"`
}

// MedicalInfo is the datosMedicos sub-document of a Profile.
// All fields are optional; the zero value is a valid empty record.
type MedicalInfo struct {
	TipoSangre         string `json:"tipoSangre,omitempty"`
	EnfermedadCronica  bool   `json:"enfermedadCronica"`
	NombreEnfermedad   string `json:"nombreEnfermedad,omitempty"`
	Recomendaciones    string `json:"recomendaciones,omitempty"`
	Alergias           string `json:"alergias,omitempty"`
	Medicamentos       string `json:"medicamentos,omitempty"`
	ContactoEmergencia string `json:"contactoEmergencia,omitempty"`
	TelefonoEmergencia string `json:"telefonoEmergencia,omitempty"`
}

// Profile is the extended personal/employment/medical record of a user.
//
// CredentialID links the profile to its login credential (1:1, enforced
// by a UNIQUE column). Profiles created via POST /users have no
// credential and leave it empty.
//
// FechaNacimiento is kept as the date string the client sent
// (e.g. "2000-05-15") — the system never computes with it, only compares
// it for the duplicate check, so parsing it would add nothing.
type Profile struct {
	ID              string          `json:"_id"`
	CredentialID    string          `json:"authUserId,omitempty"`
	Nombre          string          `json:"nombre"`
	ApellidoPaterno string          `json:"apellidoPaterno,omitempty"`
	ApellidoMaterno string          `json:"apellidoMaterno,omitempty"`
	FechaNacimiento string          `json:"fechaNacimiento"`
	Edad            int             `json:"edad"`
	Sexo            string          `json:"sexo"`
	Email           string          `json:"email,omitempty"`
	Telefono        string          `json:"telefono,omitempty"`
	DatosLaborales  *EmploymentInfo `json:"datosLaborales,omitempty"`
	DatosMedicos    *MedicalInfo    `json:"datosMedicos,omitempty"`
	SetupCompleto   bool            `json:"configuracionInicialCompleta"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
