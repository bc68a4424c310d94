package script_test

import (
	"context"
	"fmt"

	"github.com/ardnew/stmpl/script"
	"github.com/ardnew/stmpl/template"
)

func Example() {
	ctx := context.Background()

	t, err := template.CompileString(ctx,
		"{% exec %}\ngreet = lambda n: 'hi ' + n\n{% end %}"+
			"{% for i, n in enumerate(names) %}{{ i }}:{{ greet(n) }} {% end %}",
		template.WithEvaluator(script.New()))
	if err != nil {
		fmt.Println(err)

		return
	}

	out, err := t.Render(ctx, template.Namespace{"names": []string{"ann", "bo"}})
	if err != nil {
		fmt.Println(err)

		return
	}

	fmt.Println(out)
	// Output: 0:hi ann 1:hi bo
}
