package phrasing

import (
	"fmt"

	"github.com/aretw0/firstaid/pkg/domain"
)

const systemInstruction = "Eres un asistente de primeros auxilios. Tu objetivo es comunicar el paso o pregunta que te proporcionaré de manera " +
	"extremadamente CLARA, SENCILLA y CALMADA. Usa un tono AMABLE y RECONFORTANTE. " +
	"Cada respuesta debe ser breve y al punto, como si estuvieras guiando a alguien en una situación de estrés. " +
	"Si te paso el siguiente texto como paso o pregunta: '" + domain.MsgUnrecognized + "' " +
	"debes responder que la emergencia está fuera de tu alcance y que se llame a la ambulancia lo más pronto posible. " +
	"Importante: no le pidas datos en esa situación."

const escalationInstruction = "\nIMPORTANTE: Si el flujo de primeros auxilios ha terminado o no hay una guía clara, " +
	"tu prioridad es indicar al usuario que llame a una ambulancia (160 en Bolivia) INMEDIATAMENTE. " +
	"Asegúrate de que este mensaje sea el principal y muy claro, reforzando la urgencia. " +
	"No extiendas el mensaje con otra información, solo la llamada a emergencias."

// system returns the instruction for a request.
func system(req domain.PhraseRequest) string {
	if req.Escalation {
		return systemInstruction + escalationInstruction
	}
	return systemInstruction
}

// prompt wraps the raw payload according to its kind.
func prompt(req domain.PhraseRequest) string {
	if req.Escalation {
		return fmt.Sprintf("La guía no puede continuar o ha concluido. Mensaje del sistema: '%s'. Debes indicar que llamen a emergencias.", req.Content)
	}
	switch req.Kind {
	case domain.OutcomeQuestion:
		return fmt.Sprintf("La pregunta es: '%s'. Por favor, formúlala en un tono calmado y amigable.", req.Content)
	case domain.OutcomeStep:
		return fmt.Sprintf("El paso a seguir es: '%s'. Por favor, explícalo de forma calmada y sencilla.", req.Content)
	default:
		return req.Content
	}
}

// Fallback is the fixed text used when the language model cannot answer.
func Fallback(req domain.PhraseRequest) string {
	if req.Escalation {
		return domain.MsgEscalationFallback
	}
	return fmt.Sprintf(domain.MsgPhrasingFallback, req.Content)
}
