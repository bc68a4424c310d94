package template_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/ardnew/stmpl/lang"
	"github.com/ardnew/stmpl/template"
)

func Example() {
	ctx := context.Background()

	t, err := template.CompileString(ctx,
		"{% for n in names %}hello {{ n }}\n{% end %}",
		template.WithEvaluator(lang.New()))
	if err != nil {
		fmt.Println(err)

		return
	}

	out, err := t.Render(ctx, template.Namespace{"names": []string{"a", "b"}})
	if err != nil {
		fmt.Println(err)

		return
	}

	fmt.Print(out)
	// Output:
	// hello a
	// hello b
}

func ExampleWithEscape() {
	ctx := context.Background()

	t := template.Must(template.CompileString(ctx,
		"{{ name }} {{ __nonescape__(name) }}",
		template.WithEvaluator(lang.New()),
		template.WithEscape(strings.ToUpper)))

	out, err := t.Render(ctx, template.Namespace{"name": "ada"})
	if err != nil {
		fmt.Println(err)

		return
	}

	fmt.Println(out)
	// Output: ADA ada
}

func ExampleTokens() {
	for tok, err := range template.Tokens("a{{ b }}{# c #}", 0) {
		if err != nil {
			fmt.Println(err)

			return
		}

		fmt.Println(tok.Kind, tok.Start, tok.End, tok.Expr)
	}
	// Output:
	// text 0 1 a
	// variable 1 8 b
	// comment 8 15 c
}
