// Package template compiles tagged text into a tree of nodes that can be
// rendered repeatedly against different namespaces.
//
// # Syntax
//
// Three tag families are recognized:
//
//	{% keyword params %}   block directive
//	{{ expression }}       interpolation
//	{# anything #}         comment, discarded
//
// Block directives nest and are closed by {% end %}:
//
//	{% if cond %} ... {% elif cond %} ... {% else %} ... {% end %}
//	{% for x in items %} ... {% end %}
//	{% exec %} statements {% end %}
//	{% encoding %} shift_jis {% end %}
//
// In literal text, a backslash at the start of a line (after optional
// indentation) is removed together with the indentation, and a backslash
// followed by a newline joins the two lines.
//
// # Evaluation
//
// The code inside tags is compiled and run by an [Evaluator] supplied with
// [WithEvaluator]. Loop bindings and exec statements mutate the namespace of
// the current render and remain visible after the block that set them. Exec
// blocks also run once at compile time against the default namespace.
//
// The first encoding block to close names the encoding of the source. The
// rest of the source is decoded from that encoding before parsing resumes,
// and [Template.Encode] converts rendered output back to it.
//
// # Example
//
//	t, err := template.CompileString(ctx,
//		"{% for n in names %}hello {{ n }}\n{% end %}",
//		template.WithEvaluator(lang.New()))
//	if err != nil {
//		return err
//	}
//
//	out, err := t.Render(ctx, template.Namespace{"names": []string{"a", "b"}})
package template
