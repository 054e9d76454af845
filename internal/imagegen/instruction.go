package imagegen

import (
	"fmt"
	"strings"

	"studio/internal/domain"
)

// BuildInstruction renders the editing instruction sent alongside the photo.
func BuildInstruction(scene domain.Scene, description string) string {
	description = strings.TrimSpace(description)

	var b strings.Builder
	b.WriteString("Role: You are an expert e-commerce image editor for TikTok Shop Malaysia.\n\n")

	b.WriteString("Context:\n")
	if description != "" {
		fmt.Fprintf(&b, "The user has identified this product as: %q. Use this to guide your scene generation and marketing copy.\n", description)
	}
	b.WriteString("\n")

	b.WriteString("Task:\n")
	b.WriteString("1. Analyze the uploaded product image.")
	if description != "" {
		fmt.Fprintf(&b, " (Focus on identifying the %q)", description)
	}
	b.WriteString("\n")
	if scene.IsAuto() {
		b.WriteString("2. Scene Detection/Generation: Deduce the best realistic context based on the product type to maximize appeal for Malaysian buyers.\n")
	} else {
		fmt.Fprintf(&b, "2. Scene Detection/Generation: Place the product strictly in the following setting: %s\n", strings.TrimSpace(scene.Prompt))
	}
	b.WriteString("3. Visual Enhancement: Ensure the output is photo-realistic. Lighting and color balance must look professional yet authentic (not fake/AI-generated look).\n")
	b.WriteString("4. Text Overlay: Add a SHORT, high-impact English marketing tagline (e.g., \"Best Seller!\", \"Flash Sale\", \"Premium Quality\", \"Malaysia's No.1\").\n")
	b.WriteString("   - Font should be modern, bold, and readable.\n")
	b.WriteString("   - Place text in non-obtrusive areas (negative space).\n")
	b.WriteString("   - STRICTLY ENGLISH ONLY. No Chinese text.\n\n")

	b.WriteString("Constraints:\n")
	b.WriteString("- OUTPUT MUST BE AN IMAGE.\n")
	b.WriteString("- Do not alter the physical structure or logo of the product itself.\n")
	b.WriteString("- High-resolution, realistic aesthetic.\n")
	b.WriteString("- The output image should be 1:1 aspect ratio if possible, or maintain original aspect ratio.")

	return b.String()
}
