package orchestrator

import "github.com/skarllot/flow-pair/pkg/chat"

// TotalSteps estimates how many thread operations a script performs.
//
// Each lane is a thread that will exist at run time. Step, JSONConvert and CodeExtract add
// one to every lane. A MultiStep with N variants adds one to the first lane and opens
// N-1 new lanes starting at one. The estimate is the sum of all lanes.
func TotalSteps(instructions []chat.Instruction) int {
	lanes := []int{0}
	for _, instr := range instructions {
		switch in := instr.(type) {
		case chat.Step, chat.JSONConvert, chat.CodeExtract:
			for i := range lanes {
				lanes[i]++
			}
		case chat.MultiStep:
			lanes[0]++
			for range max(len(in.Variants)-1, 0) {
				lanes = append(lanes, 1)
			}
		}
	}

	total := 0
	for _, n := range lanes {
		total += n
	}
	return total
}
