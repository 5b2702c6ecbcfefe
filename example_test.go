package firstaid_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/firstaid"
	"github.com/aretw0/firstaid/pkg/adapters/memory"
	"github.com/aretw0/firstaid/pkg/tree"
)

// ExampleNew walks a short conversation over the bundled decision graph.
func ExampleNew() {
	bot, err := firstaid.New()
	if err != nil {
		log.Fatal(err)
	}
	defer bot.Close()

	ctx := context.Background()
	for _, msg := range []string{"me corté un dedo", "no", "siguiente"} {
		reply, err := bot.Chat(ctx, "demo", msg)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("[%s] %s\n", reply.Status, reply.Text)
	}
	// Output:
	// [AWAITING_ANSWER] ¿La herida sangra de forma abundante o no deja de sangrar después de unos minutos?
	// [IN_STEP_FLOW] Lávate las manos y limpia la herida con agua corriente y jabón suave, retirando la suciedad visible.
	// [IN_STEP_FLOW] Seca la zona con suavidad y cúbrela con una venda o apósito limpio. Cámbialo una vez al día.
}

// ExampleWithGraph shows a bot over a custom tree.
func ExampleWithGraph() {
	t, err := tree.Parse([]byte(`
emergencies:
  - name: Sangrado Nasal
    questions:
      - id: q
        text: "¿Fue por un golpe?"
        yes: golpe
    steps:
      - id: golpe
        text: Mantén a la persona sentada y quieta.
`))
	if err != nil {
		log.Fatal(err)
	}

	bot, err := firstaid.New(firstaid.WithGraph(memory.NewGraph(t)))
	if err != nil {
		log.Fatal(err)
	}
	defer bot.Close()

	ctx := context.Background()
	for _, msg := range []string{"tiene sangrado nasal", "no"} {
		reply, _ := bot.Chat(ctx, "demo", msg)
		fmt.Println(reply.Text)
	}
	// Output:
	// ¿Fue por un golpe?
	// No se encontró el paso siguiente para su respuesta. Por favor, busque ayuda médica. Si la situación es grave, llame a una ambulancia al 160 de inmediato.
}
