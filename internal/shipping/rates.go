package shipping

type rate struct {
	code int
	name string
	desk int64
	home int64
}

// Тарифы в динарах (DZD).
var defaultRates = []rate{
	{1, "Adrar", 900, 1400},
	{2, "Chlef", 400, 700},
	{3, "Laghouat", 500, 900},
	{4, "Oum El Bouaghi", 400, 750},
	{5, "Batna", 400, 750},
	{6, "Béjaïa", 400, 700},
	{7, "Biskra", 500, 850},
	{8, "Béchar", 700, 1200},
	{9, "Blida", 300, 500},
	{10, "Bouira", 400, 650},
	{11, "Tamanrasset", 1000, 1600},
	{12, "Tébessa", 500, 850},
	{13, "Tlemcen", 450, 800},
	{14, "Tiaret", 450, 800},
	{15, "Tizi Ouzou", 400, 650},
	{16, "Alger", 250, 400},
	{17, "Djelfa", 500, 850},
	{18, "Jijel", 400, 750},
	{19, "Sétif", 400, 700},
	{20, "Saïda", 450, 800},
	{21, "Skikda", 400, 750},
	{22, "Sidi Bel Abbès", 450, 800},
	{23, "Annaba", 400, 750},
	{24, "Guelma", 400, 750},
	{25, "Constantine", 400, 700},
	{26, "Médéa", 400, 650},
	{27, "Mostaganem", 450, 750},
	{28, "M'Sila", 450, 800},
	{29, "Mascara", 450, 800},
	{30, "Ouargla", 600, 1000},
	{31, "Oran", 400, 700},
	{32, "El Bayadh", 600, 1000},
	{33, "Illizi", 1000, 1600},
	{34, "Bordj Bou Arréridj", 400, 700},
	{35, "Boumerdès", 300, 500},
	{36, "El Tarf", 450, 800},
	{37, "Tindouf", 1000, 1600},
	{38, "Tissemsilt", 450, 800},
	{39, "El Oued", 600, 950},
	{40, "Khenchela", 450, 800},
	{41, "Souk Ahras", 450, 800},
	{42, "Tipaza", 300, 550},
	{43, "Mila", 400, 750},
	{44, "Aïn Defla", 400, 650},
	{45, "Naâma", 600, 1000},
	{46, "Aïn Témouchent", 450, 800},
	{47, "Ghardaïa", 600, 950},
	{48, "Relizane", 450, 750},
	{49, "Timimoun", 900, 1400},
	{50, "Bordj Badji Mokhtar", 1000, 1700},
	{51, "Ouled Djellal", 550, 900},
	{52, "Béni Abbès", 900, 1400},
	{53, "In Salah", 1000, 1600},
	{54, "In Guezzam", 1000, 1700},
	{55, "Touggourt", 600, 950},
	{56, "Djanet", 1000, 1700},
	{57, "El M'Ghair", 600, 950},
	{58, "El Meniaa", 700, 1100},
}
