package domain

// Fixed payloads surfaced by the engine. The phraser rewrites them, but they
// must stay meaningful when shown verbatim.
const (
	MsgWelcome = "Hola, soy tu guía de primeros auxilios. Por favor, describe brevemente la emergencia para comenzar (ej: 'Me corté un dedo', 'Alguien se atraganta')."

	MsgClarifyAnswer = "Por favor, responda 'sí' o 'no' para continuar."

	MsgUnrecognized = "No se pudo identificar la emergencia específica. Por favor, describa con más detalle o diga 'ayuda' para obtener un listado de emergencias."

	MsgNoEvaluation = "No se encontraron evaluaciones para esta emergencia. Por favor, busque ayuda médica."

	MsgNoNextStep = "No se encontró el paso siguiente para su respuesta. Por favor, busque ayuda médica."

	MsgEndOfBranch = "Hemos llegado al final de los pasos para esta rama. Por favor, busque ayuda médica si es necesario."

	MsgFlowError = "Ocurrió un error inesperado en el flujo de la conversación."

	MsgHelpHeader = "Puedo guiarte en las siguientes emergencias:"

	// MsgEscalationFallback is used when phrasing fails on a terminal outcome.
	MsgEscalationFallback = "Lo siento, no puedo procesar la información en este momento. Por favor, ¡comuníquese con una ambulancia al 160 lo antes posible!"

	// MsgPhrasingFallback wraps the raw payload when phrasing fails. %s is the payload.
	MsgPhrasingFallback = "Lo siento, tuve un problema al generar la respuesta. El mensaje original era: %s. Por favor, busque ayuda médica si es necesario."
)

// Emergencies is the closed set of emergency names the decision graph is keyed by.
var Emergencies = []string{
	"Cuerpo Extraño en el Ojo",
	"Quemaduras de Segundo Grado",
	"Quemaduras Eléctricas",
	"Atragantamiento en Adultos y Niños Mayores",
	"Convulsiones (Post-Convulsión y Protección)",
	"Dientes Rotos o Caídos",
	"Dificultad para Respirar (Leve)",
	"Fracturas Evidentes o Sospechosas",
	"Hemorragia Severa",
	"Ahogamiento",
	"Golpe en la Cabeza",
	"Cortes y Raspaduras Menores",
	"Esguinces y Torceduras Leves",
	"Picaduras de Insectos (No Alérgicas)",
	"Golpes y Contusiones Menores",
	"Sangrado Nasal",
	"Insolación Leve / Agotamiento por Calor",
	"Hipotermia Leve",
	"Desmayo (Síncope Simple)",
	"RCP en Niños (1 a 8 años)",
	"RCP en Bebés (< 1 año)",
	"RCP en Adultos (Solo Manos)",
	"Revisión Básica de Conciencia y Respiración",
}
