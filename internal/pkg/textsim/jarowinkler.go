// Package textsim 提供建议引擎容错匹配所用的字符串相似度函数。
package textsim

// JaroWinkler 计算两个字符串的 Jaro-Winkler 相似度，取值 [0, 1]。
// 任一字符串为空返回 0，完全相同返回 1。
// 算法：先计算 Jaro 相似度——在 floor(max(len)/2)-1 的位置窗口内统计匹配
// 字符数 m 与匹配字符间的换位数 t，按 (m/len1 + m/len2 + (m-t/2)/m)/3 合成；
// 再叠加前缀奖励 0.1 * min(4, 公共前缀长度) * (1 - jaro)。
func JaroWinkler(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	r1 := []rune(a)
	r2 := []rune(b)
	j := jaro(r1, r2)
	if j == 0 {
		return 0
	}

	prefix := 0
	for prefix < len(r1) && prefix < len(r2) && r1[prefix] == r2[prefix] {
		prefix++
		if prefix == 4 {
			break
		}
	}

	return j + 0.1*float64(prefix)*(1-j)
}

func jaro(r1, r2 []rune) float64 {
	len1 := len(r1)
	len2 := len(r2)

	window := max(len1, len2)/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, len1)
	matched2 := make([]bool, len2)

	matches := 0
	for i := 0; i < len1; i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window
		if hi >= len2 {
			hi = len2 - 1
		}
		for k := lo; k <= hi; k++ {
			if matched2[k] || r1[i] != r2[k] {
				continue
			}
			matched1[i] = true
			matched2[k] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	// 统计换位：两串中匹配字符按出现顺序对齐，不相等的对数即换位计数。
	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions)
	return (m/float64(len1) + m/float64(len2) + (m-t/2)/m) / 3
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
